package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrAlreadyExists indicates the (email, group) pair is already allow-listed.
	ErrAlreadyExists = errors.New("permissions: entry already exists")
	// ErrNotFound indicates no entry matches the (email, group) pair.
	ErrNotFound = errors.New("permissions: entry not found")
	// ErrInvalidEmail indicates the email is empty after normalization.
	ErrInvalidEmail = errors.New("permissions: invalid email")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "permissions.service.new"
	opList       = "permissions.list"
	opAdd        = "permissions.add"
	opRemove     = "permissions.remove"
	opCheck      = "permissions.check"
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

// ServiceConfig describes the dependencies of the permission store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages the email allowlist granting investor-content access.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the permission store service.
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

// List returns every permission entry, most recently added first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).
		Order("added_at_s DESC").
		Find(&entries).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	return entries, nil
}

// Add allow-lists an email within a group. The group defaults to DefaultGroup
// when empty. Adding an existing pair is a no-op that reports ErrAlreadyExists.
func (s *Service) Add(ctx context.Context, email, group, addedBy string) (Entry, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return Entry{}, ErrInvalidEmail
	}
	groupName := normalizeGroup(group)

	entry := Entry{
		Email:          normalized,
		GroupName:      groupName,
		AddedAtSeconds: s.clock().UTC().Unix(),
		AddedBy:        strings.TrimSpace(addedBy),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Entry
		err := tx.Where("email = ? AND group_name = ?", normalized, groupName).Take(&existing).Error
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opAdd, "lookup_failed", err)
		}
		if err := tx.Create(&entry).Error; err != nil {
			return newServiceError(opAdd, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrAlreadyExists) {
			s.logError(opAdd, "transaction_failed", txErr, zap.String("group", groupName))
		}
		return Entry{}, txErr
	}
	return entry, nil
}

// Remove deletes the entry matching the (email, group) pair.
func (s *Service) Remove(ctx context.Context, email, group string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ErrInvalidEmail
	}
	groupName := normalizeGroup(group)

	result := s.db.WithContext(ctx).
		Where("email = ? AND group_name = ?", normalized, groupName).
		Delete(&Entry{})
	if result.Error != nil {
		s.logError(opRemove, "delete_failed", result.Error, zap.String("group", groupName))
		return newServiceError(opRemove, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Check reports whether the email is allow-listed. A non-empty group scopes
// the lookup to that group; an empty group matches any group.
func (s *Service) Check(ctx context.Context, email, group string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false, nil
	}

	query := s.db.WithContext(ctx).Model(&Entry{}).Where("email = ?", normalized)
	if groupName := strings.TrimSpace(group); groupName != "" {
		query = query.Where("group_name = ?", groupName)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		s.logError(opCheck, "query_failed", err)
		return false, newServiceError(opCheck, "query_failed", err)
	}
	return count > 0, nil
}

func normalizeGroup(group string) string {
	groupName := strings.TrimSpace(group)
	if groupName == "" {
		return DefaultGroup
	}
	return groupName
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
	s.logger.Error("permission store error", attrs...)
}
