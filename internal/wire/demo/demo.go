// Package demo supplies a small, concrete wire.Codec so the reader/writer/
// hub pipeline can be built and tested end to end without a generated
// application codec. It is not itself the application protocol; a real
// deployment supplies its own wire.Codec.
package demo

import (
	"encoding/json"
	"fmt"

	"github.com/nodefleet/hubcore/internal/wire"
)

// Proto IDs for the demo message set. 0 is reserved (never sent on the wire).
const (
	ProtoEcho wire.ProtoID = iota + 1
	ProtoRpcSend
	ProtoRpcResp
	ProtoDummy
)

// Echo is ordinary client traffic: the game service receives it and the
// business layer is expected to answer with another Echo.
type Echo struct {
	Text string `json:"text"`
}

func (Echo) InnerInfo() (wire.ProtoID, string) { return ProtoEcho, "Echo" }

// RpcSend is an outbound peer-to-peer call: FromHost dials ToHost at ToAddr
// (resolved by the caller, typically from config or discovery) and invokes
// Func with Args. Session threads a correlation id back through RpcResp.
type RpcSend struct {
	FromHost wire.HostID    `json:"from_host"`
	FromAddr string         `json:"from_addr"`
	ToHost   wire.HostID    `json:"to_host"`
	ToAddr   string         `json:"to_addr"`
	Session  wire.Session   `json:"session"`
	Func     string         `json:"func"`
	Args     string         `json:"args"`
}

func (RpcSend) InnerInfo() (wire.ProtoID, string) { return ProtoRpcSend, "RpcSend" }

// RPCFields supplies the fields gamehub passes to the RPCMsg upcall.
func (m RpcSend) RPCFields() (isSend bool, fromHost wire.HostID, fromAddr, fn, args string) {
	return true, m.FromHost, m.FromAddr, m.Func, m.Args
}

// DialAddr implements the dial-address extraction rpchub uses on a cache
// miss: only RpcSend and RpcResp carry a routable address.
func (m RpcSend) DialAddr() string { return m.ToAddr }

// RpcResp answers a prior RpcSend, carrying the same Session so the caller
// can correlate it with the outstanding call.
type RpcResp struct {
	FromHost wire.HostID  `json:"from_host"`
	FromAddr string       `json:"from_addr"`
	ToHost   wire.HostID  `json:"to_host"`
	ToAddr   string       `json:"to_addr"`
	Session  wire.Session `json:"session"`
	Func     string       `json:"func"`
	Args     string       `json:"args"`
}

func (RpcResp) InnerInfo() (wire.ProtoID, string) { return ProtoRpcResp, "RpcResp" }

// RPCFields supplies the fields gamehub passes to the RPCMsg upcall.
func (m RpcResp) RPCFields() (isSend bool, fromHost wire.HostID, fromAddr, fn, args string) {
	return false, m.FromHost, m.FromAddr, m.Func, m.Args
}

// DialAddr implements the dial-address extraction rpchub uses on a cache
// miss: only RpcSend and RpcResp carry a routable address.
func (m RpcResp) DialAddr() string { return m.ToAddr }

// Dummy is an internal placeholder used to represent events with no wire
// payload of their own, such as a synthesized SocketClosed notification
// routed through the same Envelope shape as real traffic.
type Dummy struct{}

func (Dummy) InnerInfo() (wire.ProtoID, string) { return ProtoDummy, "Dummy" }

// Codec implements wire.Codec for the demo message set using JSON bodies.
// A production codec would use a compact binary encoding; JSON keeps this
// reference implementation trivially readable in tests.
type Codec struct{}

func (Codec) Decode(protoID wire.ProtoID, body []byte) (wire.Message, error) {
	switch protoID {
	case ProtoEcho:
		var m Echo
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("demo: decode Echo: %w", err)
		}
		return m, nil
	case ProtoRpcSend:
		var m RpcSend
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("demo: decode RpcSend: %w", err)
		}
		return m, nil
	case ProtoRpcResp:
		var m RpcResp
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("demo: decode RpcResp: %w", err)
		}
		return m, nil
	case ProtoDummy:
		return Dummy{}, nil
	default:
		return nil, fmt.Errorf("demo: unknown proto_id %d", protoID)
	}
}

func (Codec) Encode(msg wire.Message) ([]byte, error) {
	if _, ok := msg.(Dummy); ok {
		return nil, nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("demo: encode %T: %w", msg, err)
	}
	return body, nil
}
