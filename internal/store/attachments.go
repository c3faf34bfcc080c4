package store

import (
	"context"
	"errors"
	"log"

	"support-inbox/internal/adapter"
	"support-inbox/internal/feed"
	rows "support-inbox/internal/models"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FetchAttachmentsByMessageID returns the attachment records for a
// message with resolved public URLs.
func (s *Store) FetchAttachmentsByMessageID(ctx context.Context, messageID string) ([]models.Attachment, error) {
	var rowList []rows.Attachment
	if err := s.db.WithContext(ctx).Find(&rowList, "message_id = ?", messageID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch attachments", err)
	}

	attachments := make([]models.Attachment, 0, len(rowList))
	for _, row := range rowList {
		url := ""
		if s.blobs != nil {
			url = s.blobs.PublicURL(row.FilePath)
		}
		attachments = append(attachments, adapter.RowToAttachment(row, url))
	}
	return attachments, nil
}

// CreateAttachment records an already-stored blob against a message.
func (s *Store) CreateAttachment(ctx context.Context, attachment models.Attachment) (models.Attachment, error) {
	if attachment.MessageID == "" {
		return models.Attachment{}, apperrors.New(apperrors.ErrCodeValidation, "attachment message_id is required")
	}
	if attachment.FilePath == "" {
		return models.Attachment{}, apperrors.New(apperrors.ErrCodeValidation, "attachment file_path is required")
	}

	row := rows.Attachment{
		ID:        uuid.NewString(),
		UserID:    s.ownerID,
		MessageID: attachment.MessageID,
		FileName:  attachment.FileName,
		FilePath:  attachment.FilePath,
		FileSize:  attachment.FileSize,
		FileType:  attachment.FileType,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Attachment{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create attachment", err)
	}

	s.publish(row.TableName(), feed.KindInsert, row)
	url := ""
	if s.blobs != nil {
		url = s.blobs.PublicURL(row.FilePath)
	}
	return adapter.RowToAttachment(row, url), nil
}

// DeleteAttachment removes both the blob and the record.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	var row rows.Attachment
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.ErrCodeNotFound, "attachment "+id+" not found")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch attachment", err)
	}

	if s.blobs != nil {
		if err := s.blobs.Remove(row.FilePath); err != nil {
			log.Printf("Error deleting attachment blob %s: %v", row.FilePath, err)
		}
	}
	if err := s.db.WithContext(ctx).Delete(&rows.Attachment{}, "id = ?", id).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to delete attachment", err)
	}
	s.publish(row.TableName(), feed.KindDelete, rows.Attachment{ID: id})
	return nil
}
