package models

import "time"

// Channel is the external medium a message arrived on or a reply goes out through.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
	ChannelFacebook  Channel = "facebook"
)

// ParseChannel validates a raw channel tag from the database or a request body.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelEmail, ChannelWhatsApp, ChannelInstagram, ChannelFacebook:
		return Channel(s), true
	}
	return "", false
}

// MessageCategory classifies a message for filtering and statistics.
type MessageCategory string

const (
	CategoryInquiry   MessageCategory = "inquiry"
	CategoryComplaint MessageCategory = "complaint"
	CategoryFeedback  MessageCategory = "feedback"
	CategorySupport   MessageCategory = "support"
	CategoryOther     MessageCategory = "other"
)

func ParseCategory(s string) (MessageCategory, bool) {
	switch MessageCategory(s) {
	case CategoryInquiry, CategoryComplaint, CategoryFeedback, CategorySupport, CategoryOther:
		return MessageCategory(s), true
	}
	return "", false
}

// CustomerStatus tracks the relationship stage of a customer.
type CustomerStatus string

const (
	StatusNew       CustomerStatus = "new"
	StatusReturning CustomerStatus = "returning"
	StatusVIP       CustomerStatus = "vip"
	StatusActive    CustomerStatus = "active"
)

func ParseStatus(s string) (CustomerStatus, bool) {
	switch CustomerStatus(s) {
	case StatusNew, StatusReturning, StatusVIP, StatusActive:
		return CustomerStatus(s), true
	}
	return "", false
}

// Customer represents a person who has contacted support on any channel.
type Customer struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	Status      CustomerStatus `json:"status"`
	LastContact time.Time      `json:"last_contact"`
	Avatar      string         `json:"avatar,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// Attachment is a file uploaded alongside a message.
type Attachment struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	FileSize  int64  `json:"file_size"`
	FileType  string `json:"file_type"`
	URL       string `json:"url"`
}

// Message is a single inbound customer message plus its reply state.
// Customer is populated from the join on fetch; Attachments from a
// secondary per-message fetch.
type Message struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	Channel        Channel         `json:"channel"`
	Content        string          `json:"content"`
	Subject        string          `json:"subject,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	IsRead         bool            `json:"is_read"`
	Category       MessageCategory `json:"category,omitempty"`
	IsReplied      bool            `json:"is_replied"`
	ReplyContent   string          `json:"reply_content,omitempty"`
	ReplyTimestamp *time.Time      `json:"reply_timestamp,omitempty"`
	Customer       *Customer       `json:"customer,omitempty"`
	Attachments    []Attachment    `json:"attachments,omitempty"`
}

// ResponseTemplate is a canned reply. Bracketed placeholders in Content
// (e.g. [ORDER_NUMBER]) are operator-visible hints, never substituted.
type ResponseTemplate struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Content  string          `json:"content"`
	Category MessageCategory `json:"category,omitempty"`
	Keywords []string        `json:"keywords"`
}

// ChannelCount is one bucket of the channel distribution aggregate.
type ChannelCount struct {
	Channel Channel `json:"channel"`
	Count   int64   `json:"count"`
}

// CategoryCount is one bucket of the category distribution aggregate.
type CategoryCount struct {
	Category MessageCategory `json:"category"`
	Count    int64           `json:"count"`
}

// MessageStats is the dashboard aggregate bundle.
type MessageStats struct {
	UnreadCount          int64           `json:"unread_count"`
	UnansweredCount      int64           `json:"unanswered_count"`
	ChannelDistribution  []ChannelCount  `json:"channel_distribution"`
	CategoryDistribution []CategoryCount `json:"category_distribution"`
}
