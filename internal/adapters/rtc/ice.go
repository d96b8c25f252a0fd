// Package rtc validates the WebRTC negotiation payloads peers relay to each
// other through a room. Media never passes through the server.
package rtc

import "github.com/pion/webrtc/v4"

const defaultSTUN = "stun:stun.l.google.com:19302"

// ICEConfig is the peer configuration handed to browsers. An empty list
// falls back to a public STUN server.
func ICEConfig(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		urls = []string{defaultSTUN}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: urls}},
	}
}
