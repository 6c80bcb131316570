package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Session struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserID    uint64 `gorm:"index;not null" json:"-"`
	Title     string `gorm:"type:varchar(200)" json:"title"`
	// Version is bumped on every append to the session's turns.
	Version int64 `gorm:"not null;default:0" json:"version"`
	// DataSummaries holds short text summaries of uploaded data, keyed by file
	// id or logical name. Written by the import pipeline, read here as context.
	DataSummaries map[string]string `gorm:"serializer:json;type:text" json:"data_summaries,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Message is one immutable chat turn.
type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_session_id,priority:2" json:"session_id"`
	UserID      uint64    `gorm:"not null;index:idx_chat_msg_user_session_id,priority:1" json:"-"`
	Role        string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	ContentHash string    `gorm:"type:char(64);index;not null" json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// NewMessage builds a turn with its content hash filled in.
func NewMessage(sessionID string, userID uint64, role, content string) *Message {
	return &Message{
		SessionID:   sessionID,
		UserID:      userID,
		Role:        role,
		Content:     content,
		ContentHash: ContentHash(content),
	}
}
