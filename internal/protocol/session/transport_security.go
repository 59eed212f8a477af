package session

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrTLSRequired         = errors.New("session: tls required")
	ErrTLSCertFileRequired = errors.New("session: tls cert file required")
	ErrTLSKeyFileRequired  = errors.New("session: tls key file required")
	ErrTLSCAInvalid        = errors.New("session: tls ca file has no certificates")
)

// ValidateClientTransport checks TLS settings against the stream scheme.
func (c Config) ValidateClientTransport(secure bool) error {
	hasFiles := strings.TrimSpace(c.TLS.CAFile) != "" ||
		strings.TrimSpace(c.TLS.CertFile) != "" ||
		strings.TrimSpace(c.TLS.KeyFile) != ""
	if hasFiles && !c.TLS.Enabled {
		return fmt.Errorf("%w: tls files configured but tls disabled", ErrTLSRequired)
	}
	if c.TLS.Enabled && !secure {
		return fmt.Errorf("%w: tls enabled for a ws:// stream", ErrTLSRequired)
	}
	cert := strings.TrimSpace(c.TLS.CertFile)
	key := strings.TrimSpace(c.TLS.KeyFile)
	if cert != "" && key == "" {
		return ErrTLSKeyFileRequired
	}
	if key != "" && cert == "" {
		return ErrTLSCertFileRequired
	}
	return nil
}

// ClientTLSConfig builds the dialer TLS config. It returns nil when TLS is
// disabled so the dialer falls back to system defaults for wss.
func (c Config) ClientTLSConfig() (*tls.Config, error) {
	if !c.TLS.Enabled {
		return nil, nil
	}
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         strings.TrimSpace(c.TLS.ServerName),
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
	}
	if path := strings.TrimSpace(c.TLS.CAFile); path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("session: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: %s", ErrTLSCAInvalid, path)
		}
		out.RootCAs = pool
	}
	if cert := strings.TrimSpace(c.TLS.CertFile); cert != "" {
		pair, err := tls.LoadX509KeyPair(cert, strings.TrimSpace(c.TLS.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("session: load client keypair: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}
