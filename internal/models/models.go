package models

import (
	"time"
)

// Customer is the persisted row shape for a customer.
type Customer struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone     *string   `gorm:"type:varchar(50)" json:"phone"`
	Status    string    `gorm:"type:varchar(20);default:'new'" json:"status"`
	Notes     *string   `gorm:"type:text" json:"notes"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// Message is the persisted row shape for an inbound message and its reply state.
type Message struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string     `gorm:"type:varchar(36);index" json:"user_id"`
	CustomerID     string     `gorm:"type:varchar(36);index;not null" json:"customer_id"`
	Channel        string     `gorm:"type:varchar(20);not null" json:"channel"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	Subject        *string    `gorm:"type:varchar(255)" json:"subject"`
	Timestamp      time.Time  `gorm:"index;not null" json:"timestamp"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	Category       *string    `gorm:"type:varchar(20)" json:"category"`
	IsReplied      bool       `gorm:"default:false" json:"is_replied"`
	ReplyContent   *string    `gorm:"type:text" json:"reply_content"`
	ReplyTimestamp *time.Time `json:"reply_timestamp"`
	Customer       *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Attachment is the persisted row shape for a file attached to a message.
type Attachment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	MessageID string    `gorm:"type:varchar(36);index;not null" json:"message_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath  string    `gorm:"type:text;not null" json:"file_path"`
	FileSize  int64     `json:"file_size"`
	FileType  string    `gorm:"type:varchar(100)" json:"file_type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// ResponseTemplate is the persisted row shape for a canned reply.
// The name column is "title" for historical schema reasons.
type ResponseTemplate struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Category  *string   `gorm:"type:varchar(20)" json:"category"`
	Keywords  string    `gorm:"type:text" json:"keywords"` // JSON array string
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ResponseTemplate) TableName() string {
	return "response_templates"
}
