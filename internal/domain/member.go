package domain

// VoiceMember is one entry of a room's voice chat roster.
// No transport or lifecycle logic here.
type VoiceMember struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	IsMuted     bool   `json:"is_muted"`
	IsSpeaking  bool   `json:"is_speaking"`
}

// NewVoiceMember starts a roster entry unmuted and silent.
func NewVoiceMember(user User) VoiceMember {
	return VoiceMember{ID: user.ID, DisplayName: user.DisplayName, Avatar: user.Avatar}
}
