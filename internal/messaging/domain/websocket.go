package domain

// Action websocket request action
type Action string

const (
	// OpenChat websocket action open_chat, subscribe to the live log (partner optional)
	OpenChat Action = "open_chat"
	// CloseChat websocket action close_chat, drop the live subscription
	CloseChat Action = "close_chat"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
	// ReadMessage websocket action read_message, mark the open transcript as read
	ReadMessage Action = "read_message"
	// MarkRead alias of read_message
	MarkRead Action = "mark_read"

	// ViewUpdate server push, one per processed snapshot
	ViewUpdate Action = "view_update"
)

// WSRequest websocket Request
type WSRequest struct {
	Action    string `json:"action"`
	PartnerID string `json:"partner_id"`
	Content   string `json:"content"`
	AudioURL  string `json:"audio_url"`
	MessageID string `json:"message_id"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// NewViewResponse build the view_update push for a computed view
func NewViewResponse(v View) WSResponse {
	return WSResponse{
		Action:  string(ViewUpdate),
		Success: true,
		Payload: map[string]interface{}{
			"seq":          v.Seq,
			"partner_id":   v.PartnerID,
			"inbox":        v.Inbox.Sorted(),
			"total_unread": v.Inbox.TotalUnread(),
			"transcript":   v.Transcript,
		},
	}
}
