package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Leganyst/autoservice-booking/internal/model"
)

func TestGormServiceRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewGormServiceRepository(newTestDB(t))

	services := []*model.Service{
		{Name: "Oil change", Category: model.ServiceCategoryMaintenance, BasePrice: 45.99, EstimatedDurationMin: 30, IsActive: true},
		{Name: "Brake repair", Category: model.ServiceCategoryRepair, BasePrice: 120, EstimatedDurationMin: 90, IsActive: true},
		{Name: "Air filter", Category: model.ServiceCategoryMaintenance, BasePrice: 20, EstimatedDurationMin: 15, IsActive: false},
	}
	for _, s := range services {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create service: %v", err)
		}
	}

	items, total, err := repo.List(ctx, ServiceFilter{OnlyActive: true}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 active services, got %d", total)
	}
	if items[0].Name != "Brake repair" || items[1].Name != "Oil change" {
		t.Fatalf("expected name order, got %s, %s", items[0].Name, items[1].Name)
	}

	items, total, err = repo.List(ctx, ServiceFilter{Category: model.ServiceCategoryMaintenance}, 1, 1)
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Name != "Oil change" {
		t.Fatalf("unexpected category page: total=%d items=%+v", total, items)
	}

	byIDs, err := repo.ListByIDs(ctx, []uuid.UUID{services[0].ID, services[2].ID, uuid.New()})
	if err != nil {
		t.Fatalf("list by ids: %v", err)
	}
	if len(byIDs) != 2 {
		t.Fatalf("expected 2 services by ids, got %d", len(byIDs))
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormServiceRepository_Pricing(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	repo := NewGormServiceRepository(gdb)
	centers := NewGormServiceCenterRepository(gdb)

	center := &model.ServiceCenter{Name: "Downtown", Capacity: 2, IsActive: true}
	if err := centers.Create(ctx, center); err != nil {
		t.Fatalf("create center: %v", err)
	}
	svc := &model.Service{Name: "Oil change", Category: model.ServiceCategoryMaintenance, BasePrice: 45.99, EstimatedDurationMin: 30, IsActive: true}
	if err := repo.Create(ctx, svc); err != nil {
		t.Fatalf("create service: %v", err)
	}

	if _, err := repo.GetPricing(ctx, svc.ID, center.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without override, got %v", err)
	}

	p := &model.ServicePricing{ServiceID: svc.ID, ServiceCenterID: center.ID, Price: 40, Discount: 10, IsAvailable: true}
	if err := repo.UpsertPricing(ctx, p); err != nil {
		t.Fatalf("insert pricing: %v", err)
	}
	p.IsAvailable = false
	if err := repo.UpsertPricing(ctx, p); err != nil {
		t.Fatalf("update pricing: %v", err)
	}

	got, err := repo.GetPricing(ctx, svc.ID, center.ID)
	if err != nil {
		t.Fatalf("get pricing: %v", err)
	}
	if got.Price != 40 || got.Discount != 10 || got.IsAvailable {
		t.Fatalf("unexpected pricing %+v", got)
	}
}

func TestGormServiceCenterRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewGormServiceCenterRepository(newTestDB(t))

	for _, c := range []*model.ServiceCenter{
		{Name: "Uptown", IsActive: true},
		{Name: "Closed", IsActive: false},
		{Name: "Airport", IsActive: true, OperatingHours: map[string]any{"mon": "09:00-18:00"}},
	} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create center: %v", err)
		}
	}

	active, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 || active[0].Name != "Airport" {
		t.Fatalf("unexpected active centers %+v", active)
	}
	if active[0].OperatingHours["mon"] != "09:00-18:00" {
		t.Fatalf("operating hours not stored: %+v", active[0].OperatingHours)
	}

	all, _ := repo.List(ctx, false)
	if len(all) != 3 {
		t.Fatalf("expected 3 centers, got %d", len(all))
	}
}

func TestGormServiceRepository_RejectsInvalidService(t *testing.T) {
	ctx := context.Background()
	repo := NewGormServiceRepository(newTestDB(t))

	cases := []*model.Service{
		{Name: "Quick look", Category: model.ServiceCategoryInspection, BasePrice: 5, EstimatedDurationMin: model.MinServiceDurationMin - 1, IsActive: true},
		{Name: "Refund wash", Category: model.ServiceCategoryDetailing, BasePrice: -10, EstimatedDurationMin: 30, IsActive: true},
	}
	for _, svc := range cases {
		if err := repo.Create(ctx, svc); !errors.Is(err, model.ErrInvalidService) {
			t.Fatalf("%s: expected ErrInvalidService, got %v", svc.Name, err)
		}
	}

	_, total, err := repo.List(ctx, ServiceFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Fatalf("invalid services must not be stored, got %d", total)
	}
}
