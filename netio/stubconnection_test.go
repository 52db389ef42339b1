// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import (
	"sync"
	"time"
)

// stubConnection is a minimal, fully in-memory Connection for exercising
// ProtocolDataThread without real sockets.
type stubConnection struct {
	mutex sync.Mutex

	fd         int
	outgoing   bool
	connected  bool
	timedOut   bool
	erred      bool
	peerClosed bool

	ddos *DDoSFilter

	events []EventKind
	reason DisconnectReason

	processResult bool
	packetReady   bool
}

func newStubConnection(fd int) *stubConnection {
	return &stubConnection{fd: fd, connected: true, processResult: true}
}

func (c *stubConnection) FD() int { return c.fd }

func (c *stubConnection) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

func (c *stubConnection) Outgoing() bool { return c.outgoing }

func (c *stubConnection) Timeout(limit time.Duration) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.timedOut
}

func (c *stubConnection) Errors() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.erred
}

func (c *stubConnection) PeerClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.peerClosed
}

func (c *stubConnection) Flush() error { return nil }

func (c *stubConnection) ReadPacket() error { return nil }

func (c *stubConnection) PacketComplete() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.packetReady
}

func (c *stubConnection) ProcessPacket() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.processResult
}

func (c *stubConnection) ResetPacket() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.packetReady = false
}

func (c *stubConnection) Event(kind EventKind, detail DisconnectReason) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.events = append(c.events, kind)
	if kind == EventDisconnect {
		c.reason = detail
	}
}

func (c *stubConnection) DDoSFilter() *DDoSFilter { return c.ddos }

func (c *stubConnection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connected = false
	return nil
}

func (c *stubConnection) disconnectEventCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	for _, e := range c.events {
		if e == EventDisconnect {
			n++
		}
	}
	return n
}
