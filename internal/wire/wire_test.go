package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriteFrameReadHeaderReadBody_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello frame")
	if err := WriteFrame(&buf, 42, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	hdr, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.ProtoID != 42 {
		t.Fatalf("proto_id = %d, want 42", hdr.ProtoID)
	}
	if hdr.BodyLen != uint32(len(body)) {
		t.Fatalf("body_len = %d, want %d", hdr.BodyLen, len(body))
	}

	got, err := ReadBody(&buf, hdr)
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("body = %q, want %q", got, body)
	}
}

func TestWriteFrame_EmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, 1, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	hdr, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.BodyLen != 0 {
		t.Fatalf("body_len = %d, want 0", hdr.BodyLen)
	}
	body, err := ReadBody(&buf, hdr)
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("body len = %d, want 0", len(body))
	}
}

func TestReadHeader_RejectsOversizeBeforeBodyRead(t *testing.T) {
	var buf bytes.Buffer
	PutHeader(make([]byte, HeaderLen), 1, MaxBodyLen)
	hdr := make([]byte, HeaderLen)
	PutHeader(hdr, 1, MaxBodyLen)
	buf.Write(hdr)
	// No body bytes written at all: if ReadHeader tried to consume the body
	// it would block/fail on a short read instead of returning ErrFrameTooLarge.

	_, err := ReadHeader(&buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadHeader_ShortRead(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestKindForService(t *testing.T) {
	cases := []struct {
		st   ServiceType
		want MsgKind
	}{
		{ServiceTCP, KindTCP},
		{ServiceRPC, KindRPC},
		{ServiceRPCClient, KindRPCClient},
		{ServiceTCPRobot, KindDummy},
	}
	for _, c := range cases {
		if got := KindForService(c.st); got != c.want {
			t.Fatalf("KindForService(%v) = %v, want %v", c.st, got, c.want)
		}
	}
}

func TestParseServiceType(t *testing.T) {
	if got := ParseServiceType("rpc_client_service"); got != ServiceRPCClient {
		t.Fatalf("got %v, want ServiceRPCClient", got)
	}
	if got := ParseServiceType("bogus"); got != ServiceUnknown {
		t.Fatalf("got %v, want ServiceUnknown", got)
	}
}
