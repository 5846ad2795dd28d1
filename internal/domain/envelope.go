package domain

import "encoding/json"

// Client -> server envelope types. The router ignores anything it does
// not recognize so older servers tolerate newer clients.
const (
	EnvelopeTypingStart    = "typing_start"
	EnvelopeTypingStop     = "typing_stop"
	EnvelopeMarkRead       = "mark_read"
	EnvelopeEdit           = "edit"
	EnvelopeDelete         = "delete"
	EnvelopeReactionAdd    = "reaction_add"
	EnvelopeReactionRemove = "reaction_remove"
	EnvelopeCallInitiate   = "call_initiate"
	EnvelopeCallAccept     = "call_accept"
	EnvelopeCallReject     = "call_reject"
	EnvelopeCallCancel     = "call_cancel"
	EnvelopeCallEnd        = "call_end"
	EnvelopeWebRTCOffer    = "webrtc_offer"
	EnvelopeWebRTCAnswer   = "webrtc_answer"
	EnvelopeICECandidate   = "ice_candidate"
	EnvelopePing           = "ping"
)

// Server -> client envelope types.
const (
	EnvelopeError           = "error"
	EnvelopePong            = "pong"
	EnvelopeLoginSuccess    = "login_success"
	EnvelopeUserJoined      = "user_joined"
	EnvelopeUserLeft        = "user_left"
	EnvelopeTypingUpdate    = "typing_update"
	EnvelopeReadUpdate      = "read_update"
	EnvelopeEditConfirmed   = "edit_confirmed"
	EnvelopeDeleteConfirmed = "delete_confirmed"
	EnvelopeReactionUpdate  = "reaction_update"
	EnvelopeCallIncoming    = "call_incoming"
	EnvelopeCallAccepted    = "call_accepted"
	EnvelopeCallRejected    = "call_rejected"
	EnvelopeCallCancelled   = "call_cancelled"
	EnvelopeCallEnded       = "call_ended"
)

// Envelope is the superset of every inbound frame. Exactly one JSON
// object per frame; Type selects the handler, the rest of the fields are
// type-specific.
type Envelope struct {
	Type         string          `json:"type"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	ID           string          `json:"id"`
	IDs          []string        `json:"ids"`
	Content      string          `json:"content"`
	ReplyTo      *string         `json:"reply_to"`
	FileSize     int64           `json:"file_size"`
	OriginalName string          `json:"original_name"`
	Emoji        string          `json:"emoji"`
	To           string          `json:"to"`
	CallType     string          `json:"callType"`
	Reason       string          `json:"reason"`
	Payload      json.RawMessage `json:"payload"`
}
