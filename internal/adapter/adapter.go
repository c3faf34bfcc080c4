// Package adapter translates between the persisted row shapes
// (snake_case columns, nullable fields) and the application entities
// (typed enums, flattened optionals). Enum tags are validated on decode;
// the store validates them again before writes so an invalid tag never
// reaches a row.
package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	rows "support-inbox/internal/models"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"
)

// --- Customer ---

func RowToCustomer(row rows.Customer) (models.Customer, error) {
	status, ok := models.ParseStatus(row.Status)
	if !ok {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeDecode,
			fmt.Sprintf("customer %s has unknown status %q", row.ID, row.Status))
	}
	c := models.Customer{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Status:      status,
		LastContact: row.UpdatedAt,
	}
	if row.Phone != nil {
		c.Phone = *row.Phone
	}
	if row.Notes != nil {
		c.Notes = *row.Notes
	}
	if row.AvatarURL != nil {
		c.Avatar = *row.AvatarURL
	}
	return c, nil
}

func CustomerToRow(c models.Customer) rows.Customer {
	row := rows.Customer{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Status:    string(c.Status),
		UpdatedAt: c.LastContact,
	}
	if c.Phone != "" {
		row.Phone = &c.Phone
	}
	if c.Notes != "" {
		row.Notes = &c.Notes
	}
	if c.Avatar != "" {
		row.AvatarURL = &c.Avatar
	}
	return row
}

// CustomerPatch is a sparse update: only non-nil fields reach the store.
type CustomerPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	Status *models.CustomerStatus
	Notes  *string
	Avatar *string
}

// Columns compiles the patch into a column map for a sparse UPDATE.
// Absent fields are omitted so they are never clobbered.
func (p CustomerPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	if p.Avatar != nil {
		cols["avatar_url"] = *p.Avatar
	}
	return cols
}

// --- Message ---

func RowToMessage(row rows.Message) (models.Message, error) {
	channel, ok := models.ParseChannel(row.Channel)
	if !ok {
		return models.Message{}, apperrors.New(apperrors.ErrCodeDecode,
			fmt.Sprintf("message %s has unknown channel %q", row.ID, row.Channel))
	}
	m := models.Message{
		ID:             row.ID,
		CustomerID:     row.CustomerID,
		Channel:        channel,
		Content:        row.Content,
		Timestamp:      row.Timestamp,
		IsRead:         row.IsRead,
		IsReplied:      row.IsReplied,
		ReplyTimestamp: row.ReplyTimestamp,
	}
	if row.Subject != nil {
		m.Subject = *row.Subject
	}
	if row.Category != nil {
		category, ok := models.ParseCategory(*row.Category)
		if !ok {
			return models.Message{}, apperrors.New(apperrors.ErrCodeDecode,
				fmt.Sprintf("message %s has unknown category %q", row.ID, *row.Category))
		}
		m.Category = category
	}
	if row.ReplyContent != nil {
		m.ReplyContent = *row.ReplyContent
	}
	if row.Customer != nil {
		customer, err := RowToCustomer(*row.Customer)
		if err != nil {
			return models.Message{}, err
		}
		m.Customer = &customer
	}
	return m, nil
}

func MessageToRow(m models.Message) rows.Message {
	row := rows.Message{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		Channel:        string(m.Channel),
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		IsRead:         m.IsRead,
		IsReplied:      m.IsReplied,
		ReplyTimestamp: m.ReplyTimestamp,
	}
	if m.Subject != "" {
		row.Subject = &m.Subject
	}
	if m.Category != "" {
		category := string(m.Category)
		row.Category = &category
	}
	if m.ReplyContent != "" {
		row.ReplyContent = &m.ReplyContent
	}
	return row
}

// MessagePatch is a sparse update for a message row.
type MessagePatch struct {
	Content        *string
	Subject        *string
	IsRead         *bool
	Category       *models.MessageCategory
	IsReplied      *bool
	ReplyContent   *string
	ReplyTimestamp *time.Time
}

func (p MessagePatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Subject != nil {
		cols["subject"] = *p.Subject
	}
	if p.IsRead != nil {
		cols["is_read"] = *p.IsRead
	}
	if p.Category != nil {
		cols["category"] = string(*p.Category)
	}
	if p.IsReplied != nil {
		cols["is_replied"] = *p.IsReplied
	}
	if p.ReplyContent != nil {
		cols["reply_content"] = *p.ReplyContent
	}
	if p.ReplyTimestamp != nil {
		cols["reply_timestamp"] = *p.ReplyTimestamp
	}
	return cols
}

// --- ResponseTemplate ---

func RowToTemplate(row rows.ResponseTemplate) (models.ResponseTemplate, error) {
	t := models.ResponseTemplate{
		ID:       row.ID,
		Name:     row.Title,
		Content:  row.Content,
		Keywords: []string{},
	}
	if row.Category != nil {
		category, ok := models.ParseCategory(*row.Category)
		if !ok {
			return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeDecode,
				fmt.Sprintf("template %s has unknown category %q", row.ID, *row.Category))
		}
		t.Category = category
	}
	if row.Keywords != "" {
		if err := json.Unmarshal([]byte(row.Keywords), &t.Keywords); err != nil {
			return models.ResponseTemplate{}, apperrors.Wrap(apperrors.ErrCodeDecode,
				fmt.Sprintf("template %s has malformed keywords", row.ID), err)
		}
	}
	return t, nil
}

func TemplateToRow(t models.ResponseTemplate) rows.ResponseTemplate {
	row := rows.ResponseTemplate{
		ID:      t.ID,
		Title:   t.Name,
		Content: t.Content,
	}
	if t.Category != "" {
		category := string(t.Category)
		row.Category = &category
	}
	// Empty keyword sets stay an empty column so the row round-trips
	// byte-stable.
	if len(t.Keywords) > 0 {
		encoded, _ := json.Marshal(t.Keywords)
		row.Keywords = string(encoded)
	}
	return row
}

// TemplatePatch is a sparse update for a response template row.
type TemplatePatch struct {
	Name     *string
	Content  *string
	Category *models.MessageCategory
	Keywords []string // nil means untouched
}

func (p TemplatePatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["title"] = *p.Name
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.Category != nil {
		cols["category"] = string(*p.Category)
	}
	if p.Keywords != nil {
		if len(p.Keywords) == 0 {
			cols["keywords"] = ""
		} else {
			encoded, _ := json.Marshal(p.Keywords)
			cols["keywords"] = string(encoded)
		}
	}
	return cols
}

// --- Attachment ---

// RowToAttachment maps an attachment row; publicURL is resolved by the
// blob store, not persisted.
func RowToAttachment(row rows.Attachment, publicURL string) models.Attachment {
	return models.Attachment{
		ID:        row.ID,
		MessageID: row.MessageID,
		FileName:  row.FileName,
		FilePath:  row.FilePath,
		FileSize:  row.FileSize,
		FileType:  row.FileType,
		URL:       publicURL,
	}
}
