// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/sys/unix"

	"github.com/mercuryminer/LLL-TAO/internal/counter"
	"github.com/mercuryminer/LLL-TAO/internal/faults"
)

// sleepQuantum caps the worker's busy-spin between sweeps.
const sleepQuantum = 1 * time.Millisecond

// Config holds the tunables for a ProtocolDataThread.
type Config struct {
	ID              string
	DDoSEnabled     bool
	RScoreLimit     float64
	CScoreLimit     float64
	Timeout         time.Duration
	MeteringEnabled bool
}

// ProtocolDataThread owns a pool of connections and drives them from a
// single worker goroutine: one readiness-poll call per sweep, framed-message
// decoding per connection, and DDoS/timeout/error-driven disconnection.
//
// connections and pollFds are parallel, always equal length; an empty slot
// holds a nil connection and invalidFD. External callers (AddConnection,
// DisconnectAll, Close) mutate the slot vectors only while holding mutex;
// the worker reads and drives connections without holding it between polls,
// since each slot is logically owned by the worker between sweeps. The
// removal path always takes the mutex.
type ProtocolDataThread struct {
	mutex sync.Mutex
	cond  *sync.Cond

	connections []Connection
	pollFds     []int

	connectionCount counter.Counter
	requestCount    counter.Counter

	stopping bool
	stopped  chan struct{}

	config Config
	log    *logger.L
}

// New creates a ProtocolDataThread and starts its worker goroutine.
func New(cfg Config) *ProtocolDataThread {
	t := &ProtocolDataThread{
		config:  cfg,
		log:     logger.New("pdt-" + cfg.ID),
		stopped: make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mutex)
	go t.run()
	return t
}

// AddConnection installs conn into the lowest-index empty slot, or appends
// a new slot if none is empty, and wakes the worker. It rejects a
// connection with no pollable descriptor, and rejects conn if it is already
// installed in another slot.
func (t *ProtocolDataThread) AddConnection(conn Connection) error {
	fd := conn.FD()
	if fd == invalidFD {
		return faults.ErrInvalidSocket
	}

	t.mutex.Lock()

	idx := -1
	for i, c := range t.connections {
		if c == conn {
			t.mutex.Unlock()
			return faults.ErrAlreadyConnected
		}
		if c == nil && idx == -1 {
			idx = i
		}
	}
	if idx == -1 {
		idx = len(t.connections)
		t.connections = append(t.connections, nil)
		t.pollFds = append(t.pollFds, invalidFD)
	}
	t.connections[idx] = conn
	t.pollFds[idx] = fd
	t.connectionCount.Increment()

	if t.config.DDoSEnabled {
		if f := conn.DDoSFilter(); f != nil {
			f.AddConnectionScore(1)
		}
	}

	t.cond.Signal()
	t.mutex.Unlock()

	conn.Event(EventConnect, 0)
	return nil
}

// DisconnectAll removes every live connection, delivering reason to each.
func (t *ProtocolDataThread) DisconnectAll(reason DisconnectReason) {
	t.mutex.Lock()
	snapshot := make([]Connection, len(t.connections))
	copy(snapshot, t.connections)
	t.mutex.Unlock()

	for i, conn := range snapshot {
		if conn != nil {
			t.disconnectRemove(i, conn, reason)
		}
	}
}

// Stats reports the current connection and request counts.
func (t *ProtocolDataThread) Stats() (connections, requests uint64) {
	return t.connectionCount.Uint64(), t.requestCount.Uint64()
}

// Close stops the worker cooperatively and disconnects every remaining
// connection with DisconnectShutdown. It blocks until the worker exits,
// bounded by the poll quantum plus the sleep quantum.
func (t *ProtocolDataThread) Close() {
	t.mutex.Lock()
	t.stopping = true
	t.cond.Broadcast()
	t.mutex.Unlock()
	<-t.stopped
}

func allInvalid(fds []int) bool {
	for _, fd := range fds {
		if fd != invalidFD {
			return false
		}
	}
	return true
}

func (t *ProtocolDataThread) run() {
	defer close(t.stopped)

	for {
		t.mutex.Lock()
		if t.stopping {
			t.mutex.Unlock()
			break
		}
		t.mutex.Unlock()

		time.Sleep(sleepQuantum)

		t.mutex.Lock()
		for t.connectionCount.IsZero() && !t.stopping {
			t.cond.Wait()
		}
		if t.stopping {
			t.mutex.Unlock()
			break
		}

		n := len(t.connections)
		if n == 0 || allInvalid(t.pollFds) {
			t.mutex.Unlock()
			continue
		}

		fds := make([]int, n)
		copy(fds, t.pollFds)
		polled, err := poll(fds)
		t.mutex.Unlock()

		if err != nil {
			t.log.Errorf("readiness poll: %s", err)
			continue
		}

		for i := 0; i < n; i++ {
			t.sweepSlot(i, polled[i])
		}
	}

	t.DisconnectAll(DisconnectShutdown)
}

func (t *ProtocolDataThread) sweepSlot(i int, pfd unix.PollFd) {
	t.mutex.Lock()
	if i >= len(t.connections) {
		t.mutex.Unlock()
		return
	}
	conn := t.connections[i]
	t.mutex.Unlock()

	if conn == nil || !conn.Connected() {
		return
	}

	if pollHasError(pfd.Revents) {
		t.disconnectRemove(i, conn, DisconnectErrors)
		return
	}
	if conn.PeerClosed() {
		t.disconnectRemove(i, conn, DisconnectPeer)
		return
	}
	if conn.Errors() {
		t.disconnectRemove(i, conn, DisconnectErrors)
		return
	}
	if conn.Timeout(t.config.Timeout) {
		t.disconnectRemove(i, conn, DisconnectTimeout)
		return
	}

	if t.config.DDoSEnabled {
		if f := conn.DDoSFilter(); f != nil {
			if f.RequestScore() > t.config.RScoreLimit || f.ConnectionScore() > t.config.CScoreLimit {
				f.Ban()
			}
			if f.Banned() {
				t.disconnectRemove(i, conn, DisconnectDDoS)
				return
			}
		}
	}

	conn.Event(EventGeneric, 0)

	if err := conn.Flush(); err != nil {
		t.log.Errorf("flush: %s", err)
		t.disconnectRemove(i, conn, DisconnectErrors)
		return
	}
	if err := conn.ReadPacket(); err != nil {
		t.log.Errorf("read_packet: %s", err)
		t.disconnectRemove(i, conn, DisconnectErrors)
		return
	}

	if conn.PacketComplete() {
		if t.config.MeteringEnabled {
			t.requestCount.Increment()
		}
		if f := conn.DDoSFilter(); f != nil {
			f.AddRequestScore(1)
		}
		if !conn.ProcessPacket() {
			t.disconnectRemove(i, conn, DisconnectForce)
			return
		}
		conn.ResetPacket()
	}
}

// disconnectRemove evicts conn from slot i if it is still installed there,
// decrements connectionCount, delivers one EventDisconnect and closes conn.
// If conn is no longer installed in slot i (another caller already removed
// it), it does nothing, so a connection receives the event only once.
func (t *ProtocolDataThread) disconnectRemove(i int, conn Connection, reason DisconnectReason) {
	t.mutex.Lock()
	removed := i < len(t.connections) && t.connections[i] == conn
	if removed {
		t.connections[i] = nil
		t.pollFds[i] = invalidFD
		t.connectionCount.Decrement()
	}
	t.mutex.Unlock()

	if !removed {
		return
	}

	conn.Event(EventDisconnect, reason)
	if err := conn.Close(); err != nil {
		t.log.Debugf("close after disconnect: %s", err)
	}
}
