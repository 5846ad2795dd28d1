package domain

import (
	"time"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
)

// Message is one persisted chat message. The author never changes; edits
// touch Content only. ReadBy never contains the author. Reactions maps an
// emoji to the users who reacted with it; empty entries are removed.
type Message struct {
	ID           string              `json:"id"`
	Username     string              `json:"user"`
	Type         string              `json:"type"`
	Content      string              `json:"msg"`
	Timestamp    time.Time           `json:"timestamp"`
	ReplyTo      *string             `json:"reply_to,omitempty"`
	ReadBy       []string            `json:"read_by"`
	Reactions    map[string][]string `json:"reactions"`
	FileSize     int64               `json:"file_size"`
	OriginalName string              `json:"original_name"`
}

// ReplyPreview is the resolved excerpt of the message being replied to.
// ReplyTo is a weak reference, so a preview may be absent even when the
// reply_to id is set.
type ReplyPreview struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// MediaRef points at one stored media object.
type MediaRef struct {
	Key  string
	Type string
}

func IsMediaType(msgType string) bool {
	switch msgType {
	case MessageTypeImage, MessageTypeVideo, MessageTypeFile, MessageTypeVoice:
		return true
	}
	return false
}

// Wire renders the message in the envelope shape clients expect, both for
// history replay and for the fan-out after a send.
func (m *Message) Wire(replyData *ReplyPreview) map[string]any {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	reactions := m.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}

	payload := map[string]any{
		"type":          m.Type,
		"id":            m.ID,
		"user":          m.Username,
		"msg":           m.Content,
		"timestamp":     m.Timestamp,
		"reply_to":      m.ReplyTo,
		"read_by":       readBy,
		"file_size":     m.FileSize,
		"original_name": m.OriginalName,
		"reactions":     reactions,
	}
	if replyData != nil {
		payload["reply_data"] = replyData
	}
	return payload
}
