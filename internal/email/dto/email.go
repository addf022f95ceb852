package dto

import (
	"encoding/json"

	emaildomain "finmail-backend/internal/email/domain"
	"finmail-backend/pkg/mailbody"
)

// MessageResponse is the API view of a stored message with the JSON-packed
// columns decoded.
type MessageResponse struct {
	*emaildomain.Message
	Labels      []string                  `json:"labels"`
	Attachments []mailbody.AttachmentMeta `json:"attachments"`
}

func NewMessageResponse(message *emaildomain.Message) *MessageResponse {
	resp := &MessageResponse{Message: message}
	if message.Labels != "" {
		_ = json.Unmarshal([]byte(message.Labels), &resp.Labels)
	}
	if message.Attachments != "" {
		_ = json.Unmarshal([]byte(message.Attachments), &resp.Attachments)
	}
	return resp
}

type MessagesResponse struct {
	Messages []*MessageResponse `json:"messages"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Total    int64              `json:"total"`
}

type SyncRequest struct {
	Full bool `json:"full"`
}
