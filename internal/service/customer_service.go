package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/domain"
	"github.com/spec-kit/ops-hub/internal/piicrypt"
	"github.com/spec-kit/ops-hub/internal/repository"
	apperrors "github.com/spec-kit/ops-hub/pkg/util"
)

// CustomerService manages customer records. Phone and email are encrypted
// before they reach storage and decrypted only for actors the access gate
// admits.
type CustomerService struct {
	customers repository.CustomerRepository
	cipher    *piicrypt.Cipher
	access    *AccessService
	logger    *zap.Logger
}

// CustomerDependencies bundles collaborators.
type CustomerDependencies struct {
	CustomerRepo repository.CustomerRepository
	Cipher       *piicrypt.Cipher
	Access       *AccessService
	Logger       *zap.Logger
}

// NewCustomerService creates the service.
func NewCustomerService(deps CustomerDependencies) *CustomerService {
	return &CustomerService{
		customers: deps.CustomerRepo,
		cipher:    deps.Cipher,
		access:    deps.Access,
		logger:    deps.Logger,
	}
}

// CreateCustomerInput carries plaintext contact fields; they are never
// persisted as given.
type CreateCustomerInput struct {
	CustomerCode  string
	FirstName     string
	MiddleName    string
	LastName      string
	AreaID        *int64
	PendingAmount decimal.Decimal
	Phone         string
	Email         string
	Notes         string
}

// CustomerView is a customer with decrypted contact fields, produced only
// for authorized readers.
type CustomerView struct {
	domain.Customer
	Phone string
	Email string
}

// PendingSummary aggregates the collection book visible to the actor.
type PendingSummary struct {
	TotalPending  decimal.Decimal
	CountByStatus map[domain.CustomerStatus]int64
}

// CreateCustomer validates, encrypts PII and stores a new customer. A
// duplicate phone is detected through the deterministic ciphertext.
func (s *CustomerService) CreateCustomer(ctx context.Context, actor *domain.User, input CreateCustomerInput) (*domain.Customer, error) {
	if strings.TrimSpace(input.CustomerCode) == "" {
		return nil, apperrors.NewValidationError("customer code required", nil)
	}

	phoneEncrypted, emailEncrypted, err := s.encryptContact(input.Phone, input.Email)
	if err != nil {
		return nil, err
	}
	if phoneEncrypted != "" {
		exists, err := s.customers.ExistsByPhoneEncrypted(ctx, phoneEncrypted)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if exists {
			return nil, apperrors.NewConflict("a customer with this phone already exists", nil)
		}
	}

	customer := &domain.Customer{
		CustomerCode:   strings.TrimSpace(input.CustomerCode),
		FirstName:      input.FirstName,
		MiddleName:     input.MiddleName,
		LastName:       input.LastName,
		AreaID:         input.AreaID,
		Status:         domain.CustomerStatusActive,
		PendingAmount:  input.PendingAmount,
		PhoneEncrypted: phoneEncrypted,
		EmailEncrypted: emailEncrypted,
		Notes:          input.Notes,
		CreatedByID:    actorID(actor),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("customer created", zap.String("customer_code", customer.CustomerCode))
	return customer, nil
}

// UpdateCustomerInput carries optional field updates; a nil field is left
// unchanged. Contact fields arrive as plaintext and are re-encrypted.
type UpdateCustomerInput struct {
	FirstName     *string
	MiddleName    *string
	LastName      *string
	AreaID        *int64
	Status        *domain.CustomerStatus
	PendingAmount *decimal.Decimal
	Phone         *string
	Email         *string
	Notes         *string
}

// UpdateCustomer applies field updates to a customer the actor may view.
// A phone change runs the same duplicate check as creation.
func (s *CustomerService) UpdateCustomer(ctx context.Context, actor *domain.User, customerID int64, input UpdateCustomerInput) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	allowed, err := s.access.CanViewCustomer(ctx, actor, customer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.NewForbidden("customer outside your visibility scope")
	}

	if input.FirstName != nil {
		customer.FirstName = *input.FirstName
	}
	if input.MiddleName != nil {
		customer.MiddleName = *input.MiddleName
	}
	if input.LastName != nil {
		customer.LastName = *input.LastName
	}
	if input.AreaID != nil {
		customer.AreaID = input.AreaID
	}
	if input.Status != nil {
		customer.Status = *input.Status
	}
	if input.PendingAmount != nil {
		customer.PendingAmount = *input.PendingAmount
	}
	if input.Notes != nil {
		customer.Notes = *input.Notes
	}
	if input.Phone != nil {
		if err := s.applyPhoneChange(ctx, customer, *input.Phone); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		if *input.Email == "" {
			customer.EmailEncrypted = ""
		} else {
			encrypted, err := s.cipher.Encrypt(*input.Email)
			if err != nil {
				s.logger.Error("email encryption failed", zap.Error(err))
				return nil, err
			}
			customer.EmailEncrypted = encrypted
		}
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("customer updated", zap.String("customer_code", customer.CustomerCode))
	return customer, nil
}

func (s *CustomerService) applyPhoneChange(ctx context.Context, customer *domain.Customer, phone string) error {
	if phone == "" {
		customer.PhoneEncrypted = ""
		return nil
	}
	encrypted, err := s.cipher.Encrypt(phone)
	if err != nil {
		s.logger.Error("phone encryption failed", zap.Error(err))
		return err
	}
	if encrypted != customer.PhoneEncrypted {
		exists, err := s.customers.ExistsByPhoneEncrypted(ctx, encrypted)
		if err != nil {
			return apperrors.MapError(err)
		}
		if exists {
			return apperrors.NewConflict("a customer with this phone already exists", nil)
		}
	}
	customer.PhoneEncrypted = encrypted
	return nil
}

// GetCustomer fetches a customer and decrypts contact fields when the
// access gate admits the actor.
func (s *CustomerService) GetCustomer(ctx context.Context, actor *domain.User, customerID int64) (*CustomerView, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	allowed, err := s.access.CanViewCustomer(ctx, actor, customer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.NewForbidden("customer outside your visibility scope")
	}
	return s.decryptView(customer)
}

// ExistsByPhone checks for a customer with the given plaintext phone. Relies
// on cipher determinism: equal plaintext means equal stored ciphertext.
func (s *CustomerService) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	if strings.TrimSpace(phone) == "" {
		return false, apperrors.NewValidationError("phone required", nil)
	}
	phoneEncrypted, err := s.cipher.Encrypt(phone)
	if err != nil {
		s.logger.Error("phone encryption failed", zap.Error(err))
		return false, err
	}
	exists, err := s.customers.ExistsByPhoneEncrypted(ctx, phoneEncrypted)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return exists, nil
}

// SummaryFor aggregates pending amount and status counts over the actor's
// accessible customers.
func (s *CustomerService) SummaryFor(ctx context.Context, actor *domain.User) (*PendingSummary, error) {
	ids, restricted, err := s.access.AccessibleCustomerIDs(ctx, actor)
	if err != nil {
		return nil, err
	}

	var summary PendingSummary
	if !restricted {
		if summary.TotalPending, err = s.customers.SumPendingAmountAll(ctx); err != nil {
			return nil, apperrors.MapError(err)
		}
		if summary.CountByStatus, err = s.customers.CountByStatusAll(ctx); err != nil {
			return nil, apperrors.MapError(err)
		}
		return &summary, nil
	}

	if summary.TotalPending, err = s.customers.SumPendingAmount(ctx, ids); err != nil {
		return nil, apperrors.MapError(err)
	}
	if summary.CountByStatus, err = s.customers.CountByStatus(ctx, ids); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &summary, nil
}

func (s *CustomerService) encryptContact(phone, email string) (string, string, error) {
	var phoneEncrypted, emailEncrypted string
	var err error
	if phone != "" {
		if phoneEncrypted, err = s.cipher.Encrypt(phone); err != nil {
			s.logger.Error("phone encryption failed", zap.Error(err))
			return "", "", err
		}
	}
	if email != "" {
		if emailEncrypted, err = s.cipher.Encrypt(email); err != nil {
			s.logger.Error("email encryption failed", zap.Error(err))
			return "", "", err
		}
	}
	return phoneEncrypted, emailEncrypted, nil
}

func (s *CustomerService) decryptView(customer *domain.Customer) (*CustomerView, error) {
	view := &CustomerView{Customer: *customer}
	var err error
	if customer.PhoneEncrypted != "" {
		if view.Phone, err = s.cipher.Decrypt(customer.PhoneEncrypted); err != nil {
			s.logger.Error("phone decryption failed",
				zap.Int64("customer_id", customer.ID), zap.Error(err))
			return nil, err
		}
	}
	if customer.EmailEncrypted != "" {
		if view.Email, err = s.cipher.Decrypt(customer.EmailEncrypted); err != nil {
			s.logger.Error("email decryption failed",
				zap.Int64("customer_id", customer.ID), zap.Error(err))
			return nil, err
		}
	}
	return view, nil
}
