package store

import (
	"context"
	"errors"

	"support-inbox/internal/adapter"
	"support-inbox/internal/feed"
	rows "support-inbox/internal/models"
	apperrors "support-inbox/pkg/errors"
	"support-inbox/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FetchTemplates returns all response templates ordered by name.
func (s *Store) FetchTemplates(ctx context.Context) ([]models.ResponseTemplate, error) {
	var rowList []rows.ResponseTemplate
	if err := s.db.WithContext(ctx).Order("title").Find(&rowList).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch templates", err)
	}

	templates := make([]models.ResponseTemplate, 0, len(rowList))
	for _, row := range rowList {
		template, err := adapter.RowToTemplate(row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, nil
}

func (s *Store) FetchTemplateByID(ctx context.Context, id string) (models.ResponseTemplate, error) {
	var row rows.ResponseTemplate
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeNotFound, "template "+id+" not found")
	}
	if err != nil {
		return models.ResponseTemplate{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch template", err)
	}
	return adapter.RowToTemplate(row)
}

func (s *Store) CreateTemplate(ctx context.Context, template models.ResponseTemplate) (models.ResponseTemplate, error) {
	if template.Name == "" {
		return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeValidation, "template name is required")
	}
	if template.Content == "" {
		return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeValidation, "template content is required")
	}
	if template.Category != "" {
		if _, ok := models.ParseCategory(string(template.Category)); !ok {
			return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeValidation, "unknown category "+string(template.Category))
		}
	}

	row := adapter.TemplateToRow(template)
	row.ID = uuid.NewString()
	row.UserID = s.ownerID

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.ResponseTemplate{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create template", err)
	}

	s.publish(row.TableName(), feed.KindInsert, row)
	return adapter.RowToTemplate(row)
}

func (s *Store) UpdateTemplate(ctx context.Context, id string, patch adapter.TemplatePatch) (models.ResponseTemplate, error) {
	if patch.Category != nil {
		if _, ok := models.ParseCategory(string(*patch.Category)); !ok {
			return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeValidation, "unknown category "+string(*patch.Category))
		}
	}
	cols := patch.Columns()
	if len(cols) > 0 {
		result := s.db.WithContext(ctx).Model(&rows.ResponseTemplate{}).Where("id = ?", id).Updates(cols)
		if result.Error != nil {
			return models.ResponseTemplate{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to update template", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ResponseTemplate{}, apperrors.New(apperrors.ErrCodeNotFound, "template "+id+" not found")
		}
	}

	updated, err := s.FetchTemplateByID(ctx, id)
	if err != nil {
		return models.ResponseTemplate{}, err
	}
	s.publish((rows.ResponseTemplate{}).TableName(), feed.KindUpdate, adapter.TemplateToRow(updated))
	return updated, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&rows.ResponseTemplate{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to delete template", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, "template "+id+" not found")
	}
	s.publish((rows.ResponseTemplate{}).TableName(), feed.KindDelete, rows.ResponseTemplate{ID: id})
	return nil
}
