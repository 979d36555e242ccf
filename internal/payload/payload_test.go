package payload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_SSHWS(t *testing.T) {
	got := Generate(TypeSSHWS, "example.com", "80")
	assert.True(t, strings.HasPrefix(got, "GET /ws HTTP/1.1\r\n"))
	assert.Contains(t, got, "Host: example.com:80\r\n")
	assert.Contains(t, got, "Upgrade: websocket")
}

func TestGenerate_SSHWSS_NoPortInHost(t *testing.T) {
	got := Generate(TypeSSHWSS, "example.com", "443")
	assert.Contains(t, got, "Host: example.com\r\n")
	assert.NotContains(t, got, "example.com:443")
}

func TestGenerate_RawHTTP(t *testing.T) {
	got := Generate(TypeRawHTTP, "example.com", "8080")
	assert.True(t, strings.HasPrefix(got, "CONNECT example.com:8080 HTTP/1.1\r\n"))
}

func TestGenerate_Unknown(t *testing.T) {
	got := Generate("wireguard", "example.com", "51820")
	assert.Contains(t, got, "Unknown payload type")
}
