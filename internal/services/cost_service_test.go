package services

import (
	"context"
	"errors"
	"testing"

	"costs/internal/core"
)

type fakeStore struct {
	added []core.NewCost
	err   error
}

func (f *fakeStore) AddCost(_ context.Context, c core.NewCost) (core.CostItem, error) {
	if f.err != nil {
		return core.CostItem{}, f.err
	}
	f.added = append(f.added, c)
	return core.CostItem{
		ID: int64(len(f.added)), Sum: c.Sum, Currency: c.Currency, Category: c.Category,
		Description: c.Description, Year: 2024, Month: 10, Day: 16,
	}, nil
}

func (f *fakeStore) QueryByMonth(_ context.Context, year, month int) ([]core.CostItem, error) {
	return []core.CostItem{}, f.err
}

type fakePublisher struct {
	published []core.CostItem
	err       error
	closed    bool
}

func (f *fakePublisher) PublishCostRecorded(_ context.Context, item core.CostItem) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, item)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func validCost() core.NewCost {
	return core.NewCost{Sum: 50, Currency: core.GBP, Category: "Car", Description: "parking"}
}

func TestRecordCostStoresAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewCostService(store, pub)

	item, err := svc.RecordCost(context.Background(), validCost())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if item.ID != 1 || len(store.added) != 1 {
		t.Fatalf("cost not stored: %+v", item)
	}
	if len(pub.published) != 1 || pub.published[0].ID != item.ID {
		t.Fatalf("cost not published: %+v", pub.published)
	}
}

func TestRecordCostRejectsInvalidInput(t *testing.T) {
	store := &fakeStore{}
	svc := NewCostService(store, nil)

	bad := validCost()
	bad.Description = "  "
	if _, err := svc.RecordCost(context.Background(), bad); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(store.added) != 0 {
		t.Fatalf("invalid cost reached the store")
	}
}

func TestRecordCostPublishFailureIsNotFatal(t *testing.T) {
	svc := NewCostService(&fakeStore{}, &fakePublisher{err: errors.New("broker down")})
	if _, err := svc.RecordCost(context.Background(), validCost()); err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
}

func TestRecordCostStoreFailure(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewCostService(&fakeStore{err: core.ErrWrite}, pub)
	if _, err := svc.RecordCost(context.Background(), validCost()); !errors.Is(err, core.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("nothing should be published when the write fails")
	}
}

func TestListCostsValidatesMonth(t *testing.T) {
	svc := NewCostService(&fakeStore{}, nil)
	if _, err := svc.ListCosts(context.Background(), 2024, 0); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	items, err := svc.ListCosts(context.Background(), 2024, 1)
	if err != nil || items == nil {
		t.Fatalf("expected empty list, got %v %v", items, err)
	}
}

func TestCostServiceClose(t *testing.T) {
	if err := NewCostService(&fakeStore{}, nil).Close(); err != nil {
		t.Fatalf("close without publisher: %v", err)
	}
	pub := &fakePublisher{}
	if err := NewCostService(&fakeStore{}, pub).Close(); err != nil || !pub.closed {
		t.Fatalf("publisher not closed: %v", err)
	}
}
