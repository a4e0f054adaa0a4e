package domain

import (
	"sort"
	"strings"
	"time"
)

// MessageKind definition message payload type
type MessageKind string

const (
	// MessageKindText plain text message
	MessageKindText MessageKind = "text"
	// MessageKindAudio voice message, payload is a hosted audio url
	MessageKindAudio MessageKind = "audio"
)

const (
	// MessagesCollection mongo collection holding every direct message
	MessagesCollection = "messages"
	// ProfilesCollection mongo collection holding user profiles
	ProfilesCollection = "profiles"

	// DefaultDisplayName used when neither a profile nor a denormalized name exists
	DefaultDisplayName = "User"
)

// Message 表示一則私訊
// CreatedAt 由 store 寫入, nil 代表尚未完成 server round-trip
type Message struct {
	ID           string      `bson:"_id" json:"id"`
	SenderID     string      `bson:"sender_id" json:"sender_id"`
	ReceiverID   string      `bson:"receiver_id" json:"receiver_id"`
	CreatedAt    *time.Time  `bson:"created_at,omitempty" json:"created_at,omitempty"`
	Kind         MessageKind `bson:"type" json:"type"`
	Text         string      `bson:"text" json:"text"`
	AudioURL     string      `bson:"audio_url" json:"audio_url"`
	Read         bool        `bson:"read" json:"read"`
	SenderName   string      `bson:"sender_name" json:"sender_name"`
	ReceiverName string      `bson:"receiver_name" json:"receiver_name"`
}

// Valid reports whether both participants are present
func (m *Message) Valid() bool {
	return m.SenderID != "" && m.ReceiverID != ""
}

// PartnerOf returns the participant that is not userID.
// ok is false when the message is invalid or userID takes no part in it.
func (m *Message) PartnerOf(userID string) (partnerID string, ok bool) {
	if !m.Valid() || userID == "" {
		return "", false
	}
	switch userID {
	case m.SenderID:
		return m.ReceiverID, true
	case m.ReceiverID:
		return m.SenderID, true
	}
	return "", false
}

// Between reports whether the message was exchanged by a and b, in either direction
func (m *Message) Between(a, b string) bool {
	if !m.Valid() {
		return false
	}
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// UnreadFor reports whether userID received this message and has not read it yet
func (m *Message) UnreadFor(userID string) bool {
	return m.ReceiverID == userID && !m.Read
}

// NameOf returns the name snapshot stored on the message for participant userID
func (m *Message) NameOf(userID string) string {
	switch userID {
	case m.SenderID:
		return m.SenderName
	case m.ReceiverID:
		return m.ReceiverName
	}
	return ""
}

// Preview short text shown in the inbox for this message
func (m *Message) Preview() string {
	if m.Kind == MessageKindAudio || (m.Text == "" && m.AudioURL != "") {
		return "[Voice message]"
	}
	return m.Text
}

// NewerThan orders by CreatedAt; a pending (nil) timestamp counts as "now"
// and is therefore newer than any stored one. Equal timestamps are not newer.
func (m *Message) NewerThan(other *Message) bool {
	switch {
	case m.CreatedAt == nil && other.CreatedAt == nil:
		return false
	case m.CreatedAt == nil:
		return true
	case other.CreatedAt == nil:
		return false
	}
	return m.CreatedAt.After(*other.CreatedAt)
}

// ConversationKey sorted "a_b" pair for a two-party conversation
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// SendPayload content of an outgoing message, text and audio are mutually exclusive
type SendPayload struct {
	Text     string `json:"text,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Kind derives the message kind from the populated field
func (p SendPayload) Kind() MessageKind {
	if p.AudioURL != "" {
		return MessageKindAudio
	}
	return MessageKindText
}

// Validate checks the payload carries exactly one usable field
func (p SendPayload) Validate() error {
	hasText := strings.TrimSpace(p.Text) != ""
	hasAudio := strings.TrimSpace(p.AudioURL) != ""
	switch {
	case hasText && hasAudio:
		return ErrAmbiguousPayload
	case !hasText && !hasAudio:
		return ErrEmptySendRequest
	}
	return nil
}

// ConversationSummary 每個對話夥伴一筆, 每次快照重新計算, 不落地
type ConversationSummary struct {
	PartnerID          string  `json:"partner_id"`
	PartnerDisplayName string  `json:"partner_display_name"`
	LatestMessage      Message `json:"latest_message"`
	UnreadCount        int     `json:"unread_count"`
}

// Inbox summaries keyed by partner id
type Inbox map[string]ConversationSummary

// TotalUnread sum of unread messages over every conversation
func (in Inbox) TotalUnread() int {
	total := 0
	for _, s := range in {
		total += s.UnreadCount
	}
	return total
}

// Sorted returns the summaries ordered by latest message, newest first.
// Ties are broken by partner id so the order is deterministic.
func (in Inbox) Sorted() []ConversationSummary {
	out := make([]ConversationSummary, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i].LatestMessage, &out[j].LatestMessage
		if a.NewerThan(b) {
			return true
		}
		if b.NewerThan(a) {
			return false
		}
		return out[i].PartnerID < out[j].PartnerID
	})
	return out
}

// Snapshot one full read of the message log, ascending by created_at
type Snapshot struct {
	Seq      uint64
	Messages []Message
}

// View result of one aggregation pass over a single snapshot
type View struct {
	Seq        uint64    `json:"seq"`
	PartnerID  string    `json:"partner_id,omitempty"`
	Inbox      Inbox     `json:"-"`
	Transcript []Message `json:"transcript"`
}
