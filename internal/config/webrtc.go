package config

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

const fallbackSTUN = "stun:stun.l.google.com:19302"

// BrowserICEServers converts the configured servers for browser peers. A public
// STUN server is prepended when none is configured.
func (c *WebRTCConfig) BrowserICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(c.ICEServers)+1)

	hasSTUN := false
	for _, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			continue
		}
		for _, url := range s.URLs {
			if strings.HasPrefix(url, "stun:") || strings.HasPrefix(url, "stuns:") {
				hasSTUN = true
			}
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	if !hasSTUN {
		servers = append([]webrtc.ICEServer{{URLs: []string{fallbackSTUN}}}, servers...)
	}
	return servers
}
