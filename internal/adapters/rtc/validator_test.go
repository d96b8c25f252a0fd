package rtc

import (
	"testing"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSDP = "v=0\r\n" +
	"o=- 4215775240449105457 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n"

func signal(t *testing.T, key string, payload any) domain.Event {
	t.Helper()
	return domain.NewEvent(domain.EventVoiceChatSignal).
		With(domain.FieldFrom, 7).
		With(domain.FieldTo, 3).
		With(key, payload)
}

func TestValidator_Accepts(t *testing.T) {
	v := NewValidator()
	cases := map[string]domain.Event{
		"offer":  signal(t, domain.FieldOffer, map[string]any{"type": "offer", "sdp": minimalSDP}),
		"answer": signal(t, domain.FieldAnswer, map[string]any{"type": "answer", "sdp": minimalSDP}),
		"candidate": signal(t, domain.FieldOffer, map[string]any{
			"type": "candidate",
			"candidate": map[string]any{
				"candidate":     "candidate:1 1 udp 2122260223 192.168.1.2 54321 typ host",
				"sdpMid":        "0",
				"sdpMLineIndex": 0,
			},
		}),
		"end of candidates": signal(t, domain.FieldOffer, map[string]any{"candidate": map[string]any{"candidate": ""}}),
		"renegotiate":       signal(t, domain.FieldOffer, map[string]any{"renegotiate": true}),
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, v.ValidateSignal(ev))
		})
	}
}

func TestValidator_Rejects(t *testing.T) {
	v := NewValidator()
	cases := map[string]domain.Event{
		"no recipient": domain.NewEvent(domain.EventVoiceChatSignal).
			With(domain.FieldOffer, map[string]any{"renegotiate": true}),
		"no payload": domain.NewEvent(domain.EventVoiceChatSignal).With(domain.FieldTo, 3),
		"empty":      signal(t, domain.FieldOffer, map[string]any{}),
		"bad type":   signal(t, domain.FieldOffer, map[string]any{"type": "bogus", "sdp": minimalSDP}),
		"bad sdp":    signal(t, domain.FieldAnswer, map[string]any{"type": "answer", "sdp": "not sdp"}),
		"bad candidate": signal(t, domain.FieldOffer, map[string]any{
			"candidate": map[string]any{"candidate": "candidate:garbage"},
		}),
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, v.ValidateSignal(ev), domain.ErrBadCommand)
		})
	}
}

func TestICEConfig(t *testing.T) {
	cfg := ICEConfig(nil)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{defaultSTUN}, cfg.ICEServers[0].URLs)

	cfg = ICEConfig([]string{"stun:example.org:3478"})
	assert.Equal(t, []string{"stun:example.org:3478"}, cfg.ICEServers[0].URLs)
}
