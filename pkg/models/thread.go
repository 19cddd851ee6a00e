package models

// Role addresses one of the two canonical positions on a thread.
type Role string

const (
	RoleLow  Role = "low"
	RoleHigh Role = "high"
)

// Thread is the persistent two-party conversation record. Participants are
// stored canonically: Low always holds the smaller user id, High the larger,
// so any unordered pair maps to exactly one thread.
type Thread struct {
	ID string `json:"id"`
	// Low and High are the two participant ids with Low < High.
	Low  int64 `json:"low"`
	High int64 `json:"high"`
	// Initiator is the user who caused thread creation. Informational only.
	Initiator int64 `json:"initiator"`
	// Per-participant agreement to allow image uploads in this thread.
	LowAgreesToUploads  bool `json:"low_agrees_to_uploads"`
	HighAgreesToUploads bool `json:"high_agrees_to_uploads"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts"`
	// LastMessageTS is the timestamp (ns) of the most recent accepted
	// message; initialized to CreatedTS.
	LastMessageTS int64 `json:"last_message_ts"`
}

// UploadsEnabled reports whether image uploads are allowed: both
// participants must currently agree.
func (t *Thread) UploadsEnabled() bool {
	return t.LowAgreesToUploads && t.HighAgreesToUploads
}

// IsParticipant reports whether user is one of the thread's two participants.
func (t *Thread) IsParticipant(user int64) bool {
	return user == t.Low || user == t.High
}

// RoleOf returns the canonical role user occupies on this thread.
func (t *Thread) RoleOf(user int64) (Role, bool) {
	switch user {
	case t.Low:
		return RoleLow, true
	case t.High:
		return RoleHigh, true
	}
	return "", false
}

// OtherParticipant returns the participant opposite to user.
func (t *Thread) OtherParticipant(user int64) (int64, bool) {
	switch user {
	case t.Low:
		return t.High, true
	case t.High:
		return t.Low, true
	}
	return 0, false
}

// Agrees returns the consent flag for the given role.
func (t *Thread) Agrees(role Role) bool {
	if role == RoleLow {
		return t.LowAgreesToUploads
	}
	return t.HighAgreesToUploads
}

// SetAgrees sets the consent flag for the given role.
func (t *Thread) SetAgrees(role Role, value bool) {
	if role == RoleLow {
		t.LowAgreesToUploads = value
		return
	}
	t.HighAgreesToUploads = value
}
