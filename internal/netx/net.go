// Package netx contains small networking helpers used by the command
// router's reply formatting.
package netx

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// ipEchoURL answers with the caller's public address in the response body.
var ipEchoURL = "https://ifconfig.me"

// PublicIP asks an external echo service for the host's public address.
// Returns "" on any failure; callers treat the address as best-effort
// decoration, never as a precondition.
func PublicIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ipEchoURL, nil)
	if err != nil {
		return ""
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}


// SSHDPort extracts the Port directive from an sshd config. Returns "22"
// when the file is unreadable or carries no Port line.
func SSHDPort(conf string) string {
	for _, line := range strings.Split(conf, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Port" {
			return fields[1]
		}
	}
	return "22"
}
