package scripthost

import "github.com/nodefleet/hubcore/internal/wire"

// Noop implements Upcalls by discarding everything it receives. It exists
// so GameHub and RpcClientHub are constructible and testable without a real
// scripting engine wired in.
type Noop struct{}

func (Noop) TCPMsg(wire.VFD, wire.ProtoID, string, wire.Message)                {}
func (Noop) RPCMsg(bool, wire.HostID, string, wire.Session, string, string)     {}
func (Noop) TimerMsg([]uint64)                                                  {}

var _ Upcalls = Noop{}
