package service

import (
	"crypto/tls"
	"fmt"
	"os"
)

// LoadTLSConfig builds a server-side tls.Config from a PEM-encoded
// certificate and a PKCS8-encoded private key, for the WebSocket transport's TLS
// variant: "if is_ssl is configured, a TLS acceptor is constructed from a
// PKCS8 certificate+key pair and wraps each accepted TCP stream before the
// WebSocket handshake." tls.X509KeyPair already accepts PKCS1 or PKCS8 keys
// transparently, so no separate PKCS8 parsing step is needed.
func LoadTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("service: read cert %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("service: read key %s: %w", keyPath, err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("service: parse cert/key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
