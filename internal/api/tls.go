package api

import (
	"context"
	"crypto/tls"
	"os"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
)

const (
	EnvTLSCert = "HELLEVATOR_TLS_CERT"
	EnvTLSKey  = "HELLEVATOR_TLS_KEY"
)

// TLSConfig holds the certificate pair paths.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

var tlsConfig *TLSConfig

// InitTLS enables TLS when both HELLEVATOR_TLS_CERT and HELLEVATOR_TLS_KEY
// are set. Call it before starting the server.
func InitTLS() {
	certFile := os.Getenv(EnvTLSCert)
	keyFile := os.Getenv(EnvTLSKey)

	tlsConfig = nil
	if certFile != "" && keyFile != "" {
		tlsConfig = &TLSConfig{
			CertFile: certFile,
			KeyFile:  keyFile,
		}
	}
}

func IsTLSEnabled() bool {
	return tlsConfig != nil && tlsConfig.CertFile != "" && tlsConfig.KeyFile != ""
}

// GetTLSConfig returns the current TLS configuration (may be nil).
func GetTLSConfig() *TLSConfig {
	return tlsConfig
}

// LoadTLSConfig loads the certificate pair. It returns nil and logs when
// TLS is off or the files cannot be loaded.
func LoadTLSConfig(ctx context.Context) *tls.Config {
	if !IsTLSEnabled() {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
	if err != nil {
		ctxlog.FromContext(ctx).Error("failed to load TLS certificate", "cert", tlsConfig.CertFile, "error", err)
		return nil
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// SetTLSConfigForTest allows tests to set TLS config directly.
func SetTLSConfigForTest(cfg *TLSConfig) {
	tlsConfig = cfg
}
