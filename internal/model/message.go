package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

type SenderType string

const (
	SenderClient    SenderType = "client"
	SenderAttendant SenderType = "attendant"
	SenderSystem    SenderType = "system"
)

type ContentType string

const (
	ContentText    ContentType = "text"
	ContentImage   ContentType = "image"
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentMusic   ContentType = "music"
	ContentContact ContentType = "contact"
	ContentFile    ContentType = "file"
)

func (t ContentType) IsValid() bool {
	switch t {
	case ContentText, ContentImage, ContentVideo, ContentAudio, ContentMusic, ContentContact, ContentFile:
		return true
	}
	return false
}

// HasAttachment reports whether messages of this type carry a file URL.
func (t ContentType) HasAttachment() bool {
	switch t {
	case ContentImage, ContentVideo, ContentAudio, ContentMusic, ContentFile:
		return true
	}
	return false
}

// ContentTypeFromMIME classifies an uploaded file by its declared MIME prefix.
func ContentTypeFromMIME(mime string) ContentType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return ContentImage
	case strings.HasPrefix(mime, "video/"):
		return ContentVideo
	case strings.HasPrefix(mime, "audio/"):
		return ContentAudio
	default:
		return ContentFile
	}
}

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// Rank orders delivery states; -1 for unknown values.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

func (s DeliveryStatus) IsValid() bool {
	return s.Rank() >= 0
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	return next.IsValid() && next.Rank() > s.Rank()
}

type Message struct {
	ID              string          `json:"id"`
	ConversationID  string          `json:"conversationId"`
	SenderID        *string         `json:"senderId,omitempty"`
	SenderType      SenderType      `json:"senderType"`
	SenderName      string          `json:"senderName"`
	Content         string          `json:"content"`
	ContentType     ContentType     `json:"contentType"`
	FileURL         *string         `json:"fileUrl,omitempty"`
	Thumbnail       *string         `json:"thumbnail,omitempty"`
	Duration        *int            `json:"duration,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	QuotedMessageID *string         `json:"quotedMessageId,omitempty"`
	QuotedMessage   *QuotedMessage  `json:"quotedMessage,omitempty"`
	IsForwarded     bool            `json:"isForwarded"`
	IsPrivate       bool            `json:"isPrivate"`
	Status          DeliveryStatus  `json:"status"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	ReadAt          *time.Time      `json:"readAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Reactions       []Reaction      `json:"reactions"`
}

// QuotedMessage is the summary embedded in a message that replies to another.
type QuotedMessage struct {
	ID          string      `json:"id"`
	SenderName  string      `json:"senderName"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
}

func (m *Message) Quote() *QuotedMessage {
	return &QuotedMessage{
		ID:          m.ID,
		SenderName:  m.SenderName,
		Content:     m.Content,
		ContentType: m.ContentType,
	}
}

const previewMaxRunes = 100

var previewLabels = map[ContentType]string{
	ContentImage:   "[Image]",
	ContentVideo:   "[Video]",
	ContentAudio:   "[Audio]",
	ContentMusic:   "[Music]",
	ContentContact: "[Contact]",
	ContentFile:    "[File]",
}

// Preview renders the conversation list snippet for a message.
func (m *Message) Preview() string {
	text := strings.Join(strings.Fields(m.Content), " ")
	if label, ok := previewLabels[m.ContentType]; ok {
		if text == "" {
			return label
		}
		text = label + " " + text
	}
	if utf8.RuneCountInString(text) <= previewMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewMaxRunes-1]) + "…"
}

type Reaction struct {
	MessageID string    `json:"-"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

type SendMessageRequest struct {
	ConversationID  string          `json:"conversationId"`
	Content         string          `json:"content"`
	ContentType     ContentType     `json:"contentType"`
	FileURL         *string         `json:"fileUrl"`
	Thumbnail       *string         `json:"thumbnail"`
	Duration        *int            `json:"duration"`
	Metadata        json.RawMessage `json:"metadata"`
	QuotedMessageID *string         `json:"quotedMessageId"`
	IsPrivate       bool            `json:"isPrivate"`
}

// NewMessage is the row handed to the repository on insert.
type NewMessage struct {
	ConversationID  string
	SenderID        *string
	SenderType      SenderType
	SenderName      string
	Content         string
	ContentType     ContentType
	FileURL         *string
	Thumbnail       *string
	Duration        *int
	Metadata        json.RawMessage
	QuotedMessageID *string
	IsForwarded     bool
	IsPrivate       bool
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

type ReactionResult struct {
	Reactions []Reaction `json:"reactions"`
	Added     bool       `json:"added"`
}

type ForwardRequest struct {
	ConversationIDs []string `json:"conversationIds"`
}

type ForwardFailure struct {
	ConversationID string `json:"conversationId"`
	Code           int    `json:"code"`
	Error          string `json:"error"`
}

type ForwardResult struct {
	Forwarded []*Message       `json:"forwardedMessages"`
	Failures  []ForwardFailure `json:"failures"`
}

type StatusRequest struct {
	Status DeliveryStatus `json:"status"`
}
