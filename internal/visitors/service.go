package visitors

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
	// ErrInvalidPage indicates a visit without a page path.
	ErrInvalidPage = errors.New("visitors: page is required")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "visitors.service.new"
	opRecord     = "visitors.record"
	opList       = "visitors.list"
)

// ServiceConfig describes the dependencies of the visitor log.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service appends and lists visit records.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the visitor log service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("%s: %w", opServiceNew, errMissingDatabase)
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

// Record appends a visit with a generated id and the current timestamp.
func (s *Service) Record(ctx context.Context, page, referrer, userAgent string) (Visit, error) {
	trimmedPage := strings.TrimSpace(page)
	if trimmedPage == "" {
		return Visit{}, ErrInvalidPage
	}

	visit := Visit{
		VisitID:       uuid.NewString(),
		Page:          trimmedPage,
		Referrer:      strings.TrimSpace(referrer),
		UserAgent:     strings.TrimSpace(userAgent),
		SeenAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&visit).Error; err != nil {
		s.logger.Error("visitor log error",
			zap.String("operation", opRecord),
			zap.Error(err))
		return Visit{}, fmt.Errorf("%s: %w", opRecord, err)
	}
	return visit, nil
}

// List returns visits, most recent first.
func (s *Service) List(ctx context.Context) ([]Visit, error) {
	var visits []Visit
	if err := s.db.WithContext(ctx).Order("seen_at_s DESC").Find(&visits).Error; err != nil {
		s.logger.Error("visitor log error",
			zap.String("operation", opList),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", opList, err)
	}
	return visits, nil
}
