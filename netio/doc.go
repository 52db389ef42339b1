// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netio implements the Protocol Data Thread (PDT): a worker that
// owns a pool of network connections, multiplexes them through a single
// readiness-poll call, drives per-connection framed-message decoding, and
// enforces per-peer DDoS scoring with banning, timeouts, and disconnect
// events.
//
// A ProtocolDataThread owns exactly one worker goroutine. Connections are
// installed and removed under a mutex; the worker reads and writes them
// without holding that mutex between polls, since each slot is logically
// owned by the worker between sweeps.
package netio
