package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates no deal exists for the requested id.
	ErrNotFound = errors.New("deals: record not found")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "deals.service.new"
	opList       = "deals.list"
	opGet        = "deals.get"
	opUpsert     = "deals.upsert"
	opDelete     = "deals.delete"
)

// ServiceError carries a dotted operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies of the deal store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages deal records listed on the public site.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the deal store service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// List returns every deal, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Deal, error) {
	var records []Deal
	if err := s.db.WithContext(ctx).Order("updated_at_s DESC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Get returns the deal stored under the given id.
func (s *Service) Get(ctx context.Context, dealID string) (Deal, error) {
	var record Deal
	err := s.db.WithContext(ctx).Where("deal_id = ?", strings.TrimSpace(dealID)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Deal{}, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("deal_id", dealID))
		return Deal{}, newServiceError(opGet, "query_failed", err)
	}
	return record, nil
}

// Upsert creates or fully replaces a deal. A missing id is assigned a fresh
// UUID; the status must parse to a known value.
func (s *Service) Upsert(ctx context.Context, deal Deal) (Deal, error) {
	status, err := ParseStatus(string(deal.Status))
	if err != nil {
		return Deal{}, err
	}
	deal.Status = status

	deal.DealID = strings.TrimSpace(deal.DealID)
	if deal.DealID == "" {
		deal.DealID = uuid.NewString()
	}
	deal.UpdatedAtSeconds = s.clock().UTC().Unix()

	if err := s.db.WithContext(ctx).Save(&deal).Error; err != nil {
		s.logError(opUpsert, "save_failed", err, zap.String("deal_id", deal.DealID))
		return Deal{}, newServiceError(opUpsert, "save_failed", err)
	}
	return deal, nil
}

// Delete removes the deal stored under the given id.
func (s *Service) Delete(ctx context.Context, dealID string) error {
	result := s.db.WithContext(ctx).Where("deal_id = ?", strings.TrimSpace(dealID)).Delete(&Deal{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String("deal_id", dealID))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("deal store error", attrs...)
}
