package store

import (
	"context"
	"errors"
	"log"
	"time"

	"support-inbox/internal/adapter"
	"support-inbox/internal/feed"
	rows "support-inbox/internal/models"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FetchMessages returns all messages newest-first, each enriched with
// its customer (join) and attachments (secondary fetch).
func (s *Store) FetchMessages(ctx context.Context) ([]models.Message, error) {
	var rowList []rows.Message
	err := s.db.WithContext(ctx).Preload("Customer").Order("timestamp DESC").Find(&rowList).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch messages", err)
	}

	messages := make([]models.Message, 0, len(rowList))
	for _, row := range rowList {
		message, err := adapter.RowToMessage(row)
		if err != nil {
			return nil, err
		}
		attachments, err := s.FetchAttachmentsByMessageID(ctx, message.ID)
		if err != nil {
			log.Printf("Error loading attachments for message %s: %v", message.ID, err)
			attachments = []models.Attachment{}
		}
		message.Attachments = attachments
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *Store) FetchMessageByID(ctx context.Context, id string) (models.Message, error) {
	var row rows.Message
	err := s.db.WithContext(ctx).Preload("Customer").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Message{}, apperrors.New(apperrors.ErrCodeNotFound, "message "+id+" not found")
	}
	if err != nil {
		return models.Message{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch message", err)
	}

	message, err := adapter.RowToMessage(row)
	if err != nil {
		return models.Message{}, err
	}
	attachments, err := s.FetchAttachmentsByMessageID(ctx, message.ID)
	if err != nil {
		log.Printf("Error loading attachments for message %s: %v", message.ID, err)
		attachments = []models.Attachment{}
	}
	message.Attachments = attachments
	return message, nil
}

// CreateMessage validates required fields, stamps the owner id, and
// returns the stored entity.
func (s *Store) CreateMessage(ctx context.Context, message models.Message) (models.Message, error) {
	if message.Content == "" {
		return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "message content is required")
	}
	if message.Channel == "" {
		return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "message channel is required")
	}
	if message.CustomerID == "" {
		return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "message customer_id is required")
	}
	if _, ok := models.ParseChannel(string(message.Channel)); !ok {
		return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "unknown channel "+string(message.Channel))
	}
	if message.Category != "" {
		if _, ok := models.ParseCategory(string(message.Category)); !ok {
			return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "unknown category "+string(message.Category))
		}
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	row := adapter.MessageToRow(message)
	row.ID = uuid.NewString()
	row.UserID = s.ownerID

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Message{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create message", err)
	}

	s.publish(row.TableName(), feed.KindInsert, row)
	return s.FetchMessageByID(ctx, row.ID)
}

// UpdateMessage applies a sparse patch and returns the canonical stored
// entity. Enum fields are validated before any SQL is issued: an invalid
// tag must never reach a row, because every later fetch would choke on it.
func (s *Store) UpdateMessage(ctx context.Context, id string, patch adapter.MessagePatch) (models.Message, error) {
	if patch.Category != nil {
		if _, ok := models.ParseCategory(string(*patch.Category)); !ok {
			return models.Message{}, apperrors.New(apperrors.ErrCodeValidation, "unknown category "+string(*patch.Category))
		}
	}
	cols := patch.Columns()
	if len(cols) > 0 {
		result := s.db.WithContext(ctx).Model(&rows.Message{}).Where("id = ?", id).Updates(cols)
		if result.Error != nil {
			return models.Message{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to update message", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.Message{}, apperrors.New(apperrors.ErrCodeNotFound, "message "+id+" not found")
		}
	}

	updated, err := s.FetchMessageByID(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	s.publish((rows.Message{}).TableName(), feed.KindUpdate, adapter.MessageToRow(updated))
	return updated, nil
}

// DeleteMessage removes a message after a best-effort cascade over its
// attachments: blob and record deletion failures are logged but never
// abort the message delete.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	var attachmentRows []rows.Attachment
	if err := s.db.WithContext(ctx).Find(&attachmentRows, "message_id = ?", id).Error; err != nil {
		log.Printf("Error fetching attachments for message %s: %v", id, err)
	}
	for _, attachment := range attachmentRows {
		if s.blobs != nil {
			if err := s.blobs.Remove(attachment.FilePath); err != nil {
				log.Printf("Error deleting attachment blob %s: %v", attachment.FilePath, err)
			}
		}
		if err := s.db.WithContext(ctx).Delete(&rows.Attachment{}, "id = ?", attachment.ID).Error; err != nil {
			log.Printf("Error deleting attachment record %s: %v", attachment.ID, err)
		}
	}

	result := s.db.WithContext(ctx).Delete(&rows.Message{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to delete message", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, "message "+id+" not found")
	}
	s.publish((rows.Message{}).TableName(), feed.KindDelete, rows.Message{ID: id})
	return nil
}

// ChannelDistribution returns grouped message counts per channel,
// computed server-side.
func (s *Store) ChannelDistribution(ctx context.Context) ([]models.ChannelCount, error) {
	var counts []models.ChannelCount
	err := s.db.WithContext(ctx).Model(&rows.Message{}).
		Select("channel, count(*) as count").
		Group("channel").
		Order("channel").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch channel distribution", err)
	}
	return counts, nil
}

// CategoryDistribution returns grouped message counts per category.
// Uncategorized messages are excluded.
func (s *Store) CategoryDistribution(ctx context.Context) ([]models.CategoryCount, error) {
	var counts []models.CategoryCount
	err := s.db.WithContext(ctx).Model(&rows.Message{}).
		Select("category, count(*) as count").
		Where("category IS NOT NULL").
		Group("category").
		Order("category").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch category distribution", err)
	}
	return counts, nil
}

// MessageStats bundles the dashboard aggregates.
func (s *Store) MessageStats(ctx context.Context) (models.MessageStats, error) {
	var stats models.MessageStats

	err := s.db.WithContext(ctx).Model(&rows.Message{}).
		Where("is_read = ?", false).Count(&stats.UnreadCount).Error
	if err != nil {
		return models.MessageStats{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to count unread messages", err)
	}

	err = s.db.WithContext(ctx).Model(&rows.Message{}).
		Where("is_replied = ?", false).Count(&stats.UnansweredCount).Error
	if err != nil {
		return models.MessageStats{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to count unanswered messages", err)
	}

	if stats.ChannelDistribution, err = s.ChannelDistribution(ctx); err != nil {
		return models.MessageStats{}, err
	}
	if stats.CategoryDistribution, err = s.CategoryDistribution(ctx); err != nil {
		return models.MessageStats{}, err
	}
	return stats, nil
}
