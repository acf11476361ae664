package deals

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Deal{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	current := time.Unix(1_700_000_000, 0)
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			current = current.Add(time.Second)
			return current
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestUpsertAssignsIDAndValidatesStatus(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	deal, err := service.Upsert(ctx, Deal{
		Company:  "Fieldline Robotics",
		RaiseUSD: 12_000_000,
		Status:   "Open",
	})
	if err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if deal.DealID == "" {
		t.Fatalf("expected a generated deal id")
	}
	if deal.Status != StatusOpen {
		t.Fatalf("expected normalized status, got %q", deal.Status)
	}

	_, err = service.Upsert(ctx, Deal{Company: "Bad Deal", Status: "pending"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpsertReplacesExistingDeal(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Upsert(ctx, Deal{Company: "Gridworks", Status: StatusUpcoming})
	if err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	created.Status = StatusClosed
	created.PostMoneyUSD = 80_000_000
	if _, err := service.Upsert(ctx, created); err != nil {
		t.Fatalf("unexpected second upsert error: %v", err)
	}

	fetched, err := service.Get(ctx, created.DealID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if fetched.Status != StatusClosed || fetched.PostMoneyUSD != 80_000_000 {
		t.Fatalf("unexpected deal %+v", fetched)
	}

	all, err := service.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected single record after replace, got %d", len(all))
	}
}

func TestGetAndDeleteReportNotFound(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if err := service.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from delete, got %v", err)
	}

	deal, err := service.Upsert(ctx, Deal{Company: "Gone Soon", Status: StatusOpen})
	if err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	if err := service.Delete(ctx, deal.DealID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
}

func TestListOrdersByMostRecentUpdate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.Upsert(ctx, Deal{Company: "First", Status: StatusOpen})
	if err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
	second, err := service.Upsert(ctx, Deal{Company: "Second", Status: StatusOpen})
	if err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	all, err := service.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two deals, got %d", len(all))
	}
	if all[0].DealID != second.DealID || all[1].DealID != first.DealID {
		t.Fatalf("expected updated_at DESC ordering, got %v", all)
	}
}
