package models

// MaxMessageLength caps the message body, matching the column width.
const MaxMessageLength = 1000

// Message is a short note addressed to a single user.
type Message struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user"`
	Text   string `json:"message"`
}

// MessagePatch carries a partial update. Nil fields keep their stored
// value; only fields present in the request payload are set.
type MessagePatch struct {
	UserID *int64
	Text   *string
}
