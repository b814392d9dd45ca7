package tls

import (
	stdtls "crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfSigned(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	certPEM, keyPEM, err := SelfSigned([]string{"localhost", "127.0.0.1"}, now)
	require.NoError(t, err)

	_, err = stdtls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	block, _ := pem.Decode(certPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.Equal(t, now.Add(devCertLifetime), cert.NotAfter)
}

func TestEnsureDevCert(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")

	written, err := EnsureDevCert(certPath, keyPath, []string{"localhost"})
	require.NoError(t, err)
	assert.True(t, written)

	first, err := os.ReadFile(certPath)
	require.NoError(t, err)

	written, err = EnsureDevCert(certPath, keyPath, []string{"localhost"})
	require.NoError(t, err)
	assert.False(t, written)

	second, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = EnsureDevCert(filepath.Join(dir, "other.pem"), filepath.Join(dir, "other.key"), nil)
	assert.Error(t, err)
}
