// Package payload generates client connection snippets for the tunnel
// setups the panel supports. Pure string formatting, no lifecycle concerns.
package payload

import "fmt"

// Supported snippet types.
const (
	TypeSSHWS    = "ssh-ws"
	TypeSSHWSS   = "ssh-wss"
	TypeRawHTTP  = "raw-http"
	TypeUDPBadge = "udp-badvpn"
)

// Generate renders the snippet for the given type. Unknown types yield a
// help message listing the supported ones.
func Generate(payloadType, host, port string) string {
	switch payloadType {
	case TypeSSHWS:
		return fmt.Sprintf("GET /ws HTTP/1.1\r\nHost: %s:%s\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n", host, port)
	case TypeSSHWSS:
		return fmt.Sprintf("GET /ws HTTP/1.1\r\nHost: %s\r\nUser-Agent: Mozilla/5.0\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n", host)
	case TypeRawHTTP:
		return fmt.Sprintf("CONNECT %s:%s HTTP/1.1\r\nHost: %s\r\n\r\n", host, port, host)
	case TypeUDPBadge:
		return fmt.Sprintf("BadVPN UDPGW server: %s\nPorts: e.g. 7100,7200,7300\nClient: use udp2raw+udpgw or similar to forward UDP via TCP/WS to the server on these ports.", host)
	default:
		return "Unknown payload type. Supported: ssh-ws, ssh-wss, raw-http, udp-badvpn"
	}
}
