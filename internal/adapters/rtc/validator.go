package rtc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

// signalData is one peer-to-peer negotiation message: a session description,
// a trickled candidate or a renegotiation request.
type signalData struct {
	Type               string                   `json:"type"`
	SDP                string                   `json:"sdp"`
	Candidate          *webrtc.ICECandidateInit `json:"candidate"`
	Renegotiate        bool                     `json:"renegotiate"`
	TransceiverRequest json.RawMessage          `json:"transceiverRequest"`
}

// Validator rejects voice_chat_signal frames that could not be applied by
// the receiving peer.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateSignal implements core.SignalValidator.
func (Validator) ValidateSignal(ev domain.Event) error {
	var to domain.UserID
	if err := ev.Decode(domain.FieldTo, &to); err != nil || to <= 0 {
		return fmt.Errorf("%w: signal without recipient", domain.ErrBadCommand)
	}
	key := domain.FieldOffer
	if !ev.Has(key) {
		key = domain.FieldAnswer
	}
	var sig signalData
	if err := ev.Decode(key, &sig); err != nil {
		return fmt.Errorf("%w: signal without offer or answer", domain.ErrBadCommand)
	}
	return sig.validate()
}

func (s signalData) validate() error {
	switch {
	case s.SDP != "":
		t := webrtc.NewSDPType(s.Type)
		if t == webrtc.SDPTypeUnknown || t == webrtc.SDPTypeRollback {
			return fmt.Errorf("%w: sdp type %q", domain.ErrBadCommand, s.Type)
		}
		desc := webrtc.SessionDescription{Type: t, SDP: s.SDP}
		if _, err := desc.Unmarshal(); err != nil {
			return fmt.Errorf("%w: sdp: %v", domain.ErrBadCommand, err)
		}
		return nil
	case s.Candidate != nil:
		if s.Candidate.Candidate == "" {
			// end-of-candidates marker
			return nil
		}
		if _, err := ice.UnmarshalCandidate(strings.TrimPrefix(s.Candidate.Candidate, "candidate:")); err != nil {
			return fmt.Errorf("%w: candidate: %v", domain.ErrBadCommand, err)
		}
		return nil
	case s.Renegotiate, len(s.TransceiverRequest) > 0:
		return nil
	}
	return fmt.Errorf("%w: empty signal", domain.ErrBadCommand)
}
