// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import (
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"
)

// ZMQConnection wraps a *zmq4.Socket, demonstrating that the Connection
// Protocol Trait is transport-agnostic: GetFd() exposes a plain OS file
// descriptor, the same currency TCPConnection uses, so ProtocolDataThread's
// generic poller requires no ZMQ-specific code path.
type ZMQConnection struct {
	mutex sync.Mutex

	socket    *zmq.Socket
	outgoing  bool
	connected bool

	frame    FrameHandler
	recvBuf  []byte
	complete []byte

	lastActivity time.Time
	erred        bool

	ddos *DDoSFilter
	log  *logger.L
}

// NewZMQConnection wraps an already-connected socket.
func NewZMQConnection(socket *zmq.Socket, outgoing bool, ddos *DDoSFilter) *ZMQConnection {
	return &ZMQConnection{
		socket:       socket,
		outgoing:     outgoing,
		connected:    true,
		lastActivity: time.Now(),
		ddos:         ddos,
		log:          logger.New("zmq-connection"),
	}
}

func (c *ZMQConnection) SetFrameHandler(f FrameHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.frame = f
}

func (c *ZMQConnection) FD() int {
	fd, err := c.socket.GetFd()
	if err != nil {
		return invalidFD
	}
	return fd
}

func (c *ZMQConnection) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connected
}

func (c *ZMQConnection) Outgoing() bool { return c.outgoing }

func (c *ZMQConnection) Timeout(limit time.Duration) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return time.Since(c.lastActivity) > limit
}

func (c *ZMQConnection) Errors() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.erred
}

// PeerClosed always reports false: a zmq4 socket reconnects transparently
// at the transport layer and never surfaces a peer-closed condition here.
func (c *ZMQConnection) PeerClosed() bool { return false }

func (c *ZMQConnection) Flush() error { return nil } // zmq4 sends are unbuffered at this layer

func (c *ZMQConnection) ReadPacket() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	events, err := c.socket.GetEvents()
	if err != nil {
		c.erred = true
		return err
	}
	if events&zmq.POLLIN == 0 {
		return nil
	}

	msg, err := c.socket.RecvBytes(zmq.DONTWAIT)
	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
			return nil
		}
		c.erred = true
		return err
	}
	c.recvBuf = append(c.recvBuf, msg...)
	c.lastActivity = time.Now()
	return nil
}

func (c *ZMQConnection) PacketComplete() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.frame == nil {
		return false
	}
	n := c.frame(c.recvBuf)
	if n == 0 {
		return false
	}
	c.complete = make([]byte, n)
	copy(c.complete, c.recvBuf[:n])
	return true
}

func (c *ZMQConnection) ProcessPacket() bool { return true }

func (c *ZMQConnection) ResetPacket() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.recvBuf = append([]byte(nil), c.recvBuf[len(c.complete):]...)
	c.complete = nil
}

func (c *ZMQConnection) Event(kind EventKind, detail DisconnectReason) {
	if kind == EventDisconnect {
		c.log.Debugf("disconnect: %s", detail)
	}
}

func (c *ZMQConnection) DDoSFilter() *DDoSFilter { return c.ddos }

func (c *ZMQConnection) Close() error {
	c.mutex.Lock()
	c.connected = false
	c.mutex.Unlock()
	return c.socket.Close()
}
