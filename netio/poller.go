// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import (
	"golang.org/x/sys/unix"

	"github.com/mercuryminer/LLL-TAO/internal/faults"
)

// pollTimeout is the readiness-poll call's timeout per sweep.
const pollTimeout = 100 // milliseconds

// poll multiplexes readiness across fds in a single syscall, mirroring
// zmqutil.Poller but operating on raw OS file descriptors via
// golang.org/x/sys/unix so a ProtocolDataThread is not tied to ZMQ sockets.
// Entries with fd == invalidFD are passed through untouched (matching
// INVALID_SOCKET meaning "empty slot") and never come back marked ready.
func poll(fds []int) ([]unix.PollFd, error) {
	pollFds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		if fd == invalidFD {
			pollFds[i] = unix.PollFd{Fd: -1}
			continue
		}
		pollFds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLOUT}
	}

	_, err := unix.Poll(pollFds, pollTimeout)
	if err != nil && err != unix.EINTR {
		return nil, faults.ErrPollFailed
	}
	return pollFds, nil
}

func pollHasError(revents int16) bool {
	return revents&(unix.POLLERR|unix.POLLNVAL|unix.POLLHUP) != 0
}
