package wire

// VFD is a per-service monotonically increasing connection id. Values below
// 100 are reserved for well-known targets such as broadcast.
type VFD uint64

// HostID identifies a server within the peer fleet; also the RPC routing key.
type HostID int32

// Session is an application-layer token: equal to the source VFD for client
// traffic, equal to the destination HostID (widened) for RPC-client traffic.
type Session uint64

// MsgKind classifies a decoded message by where it entered the system.
type MsgKind int

const (
	KindTCP MsgKind = iota
	KindRPC
	KindRPCClient
	KindSocketClosed
	KindDummy
)

func (k MsgKind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindRPC:
		return "rpc"
	case KindRPCClient:
		return "rpc_client"
	case KindSocketClosed:
		return "socket_closed"
	default:
		return "dummy"
	}
}

// ServiceType determines how an inbound message's MsgKind is stamped and
// which MsgKinds a writer accepts.
type ServiceType int

const (
	ServiceTCP ServiceType = iota
	ServiceRPC
	ServiceRPCClient
	ServiceTCPRobot
	ServiceDB
	ServiceUnknown
)

func (s ServiceType) String() string {
	switch s {
	case ServiceTCP:
		return "game_service"
	case ServiceRPC:
		return "rpc_service"
	case ServiceRPCClient:
		return "rpc_client_service"
	case ServiceTCPRobot:
		return "robot_service"
	case ServiceDB:
		return "db_service"
	default:
		return "unknown_service"
	}
}

// ParseServiceType maps a config string to a ServiceType (mirrors the
// key=value "service_type" values recognized at startup).
func ParseServiceType(s string) ServiceType {
	switch s {
	case "game_service":
		return ServiceTCP
	case "rpc_service":
		return ServiceRPC
	case "rpc_client_service":
		return ServiceRPCClient
	case "robot_service":
		return ServiceTCPRobot
	case "db_service":
		return ServiceDB
	default:
		return ServiceUnknown
	}
}

// KindForService maps the service type that received a frame to the MsgKind
// stamped on it before the message reaches a hub.
func KindForService(st ServiceType) MsgKind {
	switch st {
	case ServiceTCP:
		return KindTCP
	case ServiceRPC:
		return KindRPC
	case ServiceRPCClient:
		return KindRPCClient
	default:
		return KindDummy
	}
}

// AddressedMessage is implemented by message variants that carry a routable
// destination address (RpcSend, RpcResp in the demo codec). RpcClientHub
// uses it to extract to_addr on a registry cache miss; messages that don't
// implement it yield no address and are rejected.
type AddressedMessage interface {
	DialAddr() string
}

// Envelope is the internal combination (msg_kind, session, payload) passed
// between a ConnReader and its owning hub, and between a hub and a
// ConnWriter.
type Envelope struct {
	Kind    MsgKind
	Session Session
	Msg     Message
}

// ClosedPayload is the zero-value placeholder message carried by a
// synthesized SocketClosed envelope: it never crosses the wire, so it needs
// no codec support, only the Message interface the core requires.
type ClosedPayload struct{}

func (ClosedPayload) InnerInfo() (ProtoID, string) { return 0, "SocketClosed" }

// Announce is a new-connection publication a Service makes to its owning
// hub: (vfd, outbound sender). For the RPC-client hub, VFD carries the
// destination host_id widened to the common identifier space, matching the
// session-equals-host_id convention used for RPC traffic.
type Announce struct {
	VFD    VFD
	Sender chan<- Envelope
}
