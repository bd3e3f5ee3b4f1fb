// Package scripthost defines the safe capability surface a future embedded
// scripting layer binds against. No component exposes a raw pointer or
// unsafe reference across this boundary: GameHub and RpcClientHub hand out
// only these narrow interfaces, and a script binding can do nothing beyond
// what they expose.
package scripthost

import "github.com/nodefleet/hubcore/internal/wire"

// TimerControl is the view of a hub's timer scheduler safe to expose to
// script callbacks.
type TimerControl interface {
	AddTimer(beginMS, freqMS int64) uint64
	RemoveTimer(id uint64)
}

// ConnSender is the view of a hub's registries safe to expose to script
// callbacks: addressing a live connection by vfd without access to the
// registry itself.
type ConnSender interface {
	SendToVFD(vfd wire.VFD, kind wire.MsgKind, msg wire.Message) error
}

// Upcalls is the three-entry contract the embedded scripted business layer
// must implement; GameHub and RpcClientHub call into it and never inspect
// its internals.
type Upcalls interface {
	// TCPMsg delivers one decoded client message.
	TCPMsg(vfd wire.VFD, protoID wire.ProtoID, name string, payload wire.Message)
	// RPCMsg delivers one decoded peer message. isSend distinguishes an
	// RpcSend call from an RpcResp reply.
	RPCMsg(isSend bool, fromHost wire.HostID, fromAddr string, session wire.Session, fn, args string)
	// TimerMsg delivers the ids of every timer that matured this tick.
	TimerMsg(ids []uint64)
}
