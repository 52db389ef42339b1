// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netio

import "time"

// EventKind identifies the class of event delivered to a Connection.
type EventKind int

const (
	// EventConnect is delivered once, immediately after a connection is
	// installed into the thread.
	EventConnect EventKind = iota
	// EventGeneric is delivered on every sweep that finds the connection
	// still live, before packet processing.
	EventGeneric
	// EventDisconnect is delivered exactly once, with a DisconnectReason
	// detail, when a connection is removed.
	EventDisconnect
)

// DisconnectReason explains why a connection was removed from a
// ProtocolDataThread.
type DisconnectReason int

const (
	DisconnectTimeout DisconnectReason = iota
	DisconnectErrors
	DisconnectDDoS
	DisconnectForce
	DisconnectPeer
	DisconnectShutdown
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectTimeout:
		return "TIMEOUT"
	case DisconnectErrors:
		return "ERRORS"
	case DisconnectDDoS:
		return "DDOS"
	case DisconnectForce:
		return "FORCE"
	case DisconnectPeer:
		return "PEER"
	case DisconnectShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// invalidFD marks an empty slot in ProtocolDataThread's poll descriptor
// array, mirroring INVALID_SOCKET in the source implementation.
const invalidFD = -1

// Connection is the contract every protocol implementation satisfies: the
// Go expression of the Connection Protocol Trait. A ProtocolDataThread
// drives connections purely through this interface, so transports (plain
// TCP, ZMQ, anything with a pollable file descriptor) are interchangeable.
type Connection interface {
	// FD returns the underlying OS file descriptor the thread polls for
	// readiness, or invalidFD if the connection has no pollable descriptor
	// (never true for a live, connected connection).
	FD() int

	// Connected reports whether the connection is still considered live.
	Connected() bool

	// Outgoing reports whether this connection was dialed by us rather than
	// accepted.
	Outgoing() bool

	// Timeout reports whether more than limit has elapsed since the last
	// observed activity.
	Timeout(limit time.Duration) bool

	// Errors reports whether the connection has entered an unrecoverable
	// error state (e.g. a failed read/write on the underlying socket).
	Errors() bool

	// PeerClosed reports whether the remote end closed the connection
	// cleanly (e.g. read returned EOF), as distinct from Errors.
	PeerClosed() bool

	// Flush writes any buffered outbound bytes.
	Flush() error

	// ReadPacket reads available bytes into the connection's receive
	// buffer, updating last-activity on success.
	ReadPacket() error

	// PacketComplete reports whether a full framed message is now buffered.
	PacketComplete() bool

	// ProcessPacket handles the completed message. Returning false signals
	// the thread to disconnect the connection with DisconnectForce.
	ProcessPacket() bool

	// ResetPacket discards the completed message and prepares to read the
	// next one.
	ResetPacket()

	// Event notifies the connection of a lifecycle event.
	Event(kind EventKind, detail DisconnectReason)

	// DDoSFilter returns the connection's DDoS scoring state, or nil if
	// DDoS scoring is disabled for this connection.
	DDoSFilter() *DDoSFilter

	// Close releases the underlying transport.
	Close() error
}
