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

// FetchCustomers returns all customers ordered by name.
func (s *Store) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	var rowList []rows.Customer
	if err := s.db.WithContext(ctx).Order("name").Find(&rowList).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch customers", err)
	}

	customers := make([]models.Customer, 0, len(rowList))
	for _, row := range rowList {
		customer, err := adapter.RowToCustomer(row)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, nil
}

func (s *Store) FetchCustomerByID(ctx context.Context, id string) (models.Customer, error) {
	var row rows.Customer
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeNotFound, "customer "+id+" not found")
	}
	if err != nil {
		return models.Customer{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch customer", err)
	}
	return adapter.RowToCustomer(row)
}

// FindCustomerByPhone looks a customer up by phone number; used by the
// inbound webhook to attach messages to existing customers.
func (s *Store) FindCustomerByPhone(ctx context.Context, phone string) (models.Customer, error) {
	var row rows.Customer
	err := s.db.WithContext(ctx).First(&row, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeNotFound, "no customer with phone "+phone)
	}
	if err != nil {
		return models.Customer{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to fetch customer by phone", err)
	}
	return adapter.RowToCustomer(row)
}

// CreateCustomer validates required fields, stamps the owner id, and
// returns the stored entity.
func (s *Store) CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	if customer.Name == "" {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeValidation, "customer name is required")
	}
	if customer.Email == "" {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeValidation, "customer email is required")
	}
	if customer.Status == "" {
		customer.Status = models.StatusNew
	}
	if _, ok := models.ParseStatus(string(customer.Status)); !ok {
		return models.Customer{}, apperrors.New(apperrors.ErrCodeValidation, "unknown status "+string(customer.Status))
	}

	row := adapter.CustomerToRow(customer)
	row.ID = uuid.NewString()
	row.UserID = s.ownerID

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Customer{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create customer", err)
	}

	s.publish(row.TableName(), feed.KindInsert, row)
	return adapter.RowToCustomer(row)
}

// UpdateCustomer applies a sparse patch: only fields present in the
// patch touch the row.
func (s *Store) UpdateCustomer(ctx context.Context, id string, patch adapter.CustomerPatch) (models.Customer, error) {
	if patch.Status != nil {
		if _, ok := models.ParseStatus(string(*patch.Status)); !ok {
			return models.Customer{}, apperrors.New(apperrors.ErrCodeValidation, "unknown status "+string(*patch.Status))
		}
	}
	cols := patch.Columns()
	if len(cols) > 0 {
		result := s.db.WithContext(ctx).Model(&rows.Customer{}).Where("id = ?", id).Updates(cols)
		if result.Error != nil {
			return models.Customer{}, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to update customer", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.Customer{}, apperrors.New(apperrors.ErrCodeNotFound, "customer "+id+" not found")
		}
	}

	updated, err := s.FetchCustomerByID(ctx, id)
	if err != nil {
		return models.Customer{}, err
	}
	s.publish((rows.Customer{}).TableName(), feed.KindUpdate, adapter.CustomerToRow(updated))
	return updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&rows.Customer{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to delete customer", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, "customer "+id+" not found")
	}
	s.publish((rows.Customer{}).TableName(), feed.KindDelete, rows.Customer{ID: id})
	return nil
}
