// Package wire defines the on-the-wire framing contract shared by the TCP
// and WebSocket transports, and the narrow codec interface the core depends
// on without ever inspecting message internals.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the fixed size of the frame header: proto_id(4) + body_length(4).
const HeaderLen = 8

// MaxBodyLen is the largest body a frame may carry. body_length must satisfy
// body_length < MaxBodyLen; a header claiming more is a framing error and the
// connection is dropped before any body bytes are read.
const MaxBodyLen = 10*1024*1024 - HeaderLen

// ErrFrameTooLarge is returned when a header's body_length meets or exceeds MaxBodyLen.
var ErrFrameTooLarge = errors.New("wire: frame exceeds max body length")

// ProtoID identifies a message type; codec-assigned, opaque to the core.
type ProtoID uint32

// Message is the only shape the core requires of a decoded application
// message: enough to report back its own proto_id and name for logging and
// dispatch. Concrete message types and their encode/decode logic are the
// responsibility of the (external) generated codec.
type Message interface {
	InnerInfo() (ProtoID, string)
}

// Codec translates between raw frame bodies and Message values. The core
// never inspects a Message's internals beyond this interface plus
// InnerInfo; encoding/decoding details belong entirely to the codec.
type Codec interface {
	Decode(protoID ProtoID, body []byte) (Message, error)
	Encode(msg Message) ([]byte, error)
}

// Header is the decoded form of the 8-byte frame header.
type Header struct {
	ProtoID ProtoID
	BodyLen uint32
}

// ReadHeader reads and validates one 8-byte header from r. A short read is
// an I/O error; an oversize body_length is ErrFrameTooLarge and is returned
// before any body bytes are consumed.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	h := Header{
		ProtoID: ProtoID(binary.LittleEndian.Uint32(buf[0:4])),
		BodyLen: binary.LittleEndian.Uint32(buf[4:8]),
	}
	if h.BodyLen >= MaxBodyLen {
		return Header{}, fmt.Errorf("%w: body_length=%d", ErrFrameTooLarge, h.BodyLen)
	}
	return h, nil
}

// ReadBody reads exactly h.BodyLen bytes from r.
func ReadBody(r io.Reader, h Header) ([]byte, error) {
	body := make([]byte, h.BodyLen)
	if h.BodyLen == 0 {
		return body, nil
	}
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// PutHeader writes proto_id and body_length little-endian into buf[:8].
func PutHeader(buf []byte, protoID ProtoID, bodyLen uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(protoID))
	binary.LittleEndian.PutUint32(buf[4:8], bodyLen)
}

// WriteFrame writes one complete frame (header + body) to w.
func WriteFrame(w io.Writer, protoID ProtoID, body []byte) error {
	var hdr [HeaderLen]byte
	PutHeader(hdr[:], protoID, uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}
