package service

import (
	"context"
	"testing"

	"crms/internal/model"
	"crms/pkg/apperror"
)

func TestCatalogService_Equipment(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogService(env.catalog)
	ctx := context.Background()

	e, err := svc.CreateEquipment(ctx, EquipmentDTO{Name: "Excavator", Code: " exc-01 "})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}
	if e.Code != "EXC-01" || e.Status != model.EquipmentAvailable {
		t.Errorf("code should be upper-cased and status defaulted, got %+v", e)
	}

	_, err = svc.CreateEquipment(ctx, EquipmentDTO{Name: "Other", Code: "EXC-01"})
	assertKind(t, err, apperror.KindConflict)

	_, err = svc.CreateEquipment(ctx, EquipmentDTO{Name: "Crane", Code: "CR-1", Status: "BROKEN"})
	assertKind(t, err, apperror.KindValidation)

	updated, err := svc.UpdateEquipment(ctx, e.ID, EquipmentDTO{Name: "Excavator", Code: "EXC-01", Status: "maintenance"})
	if err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}
	if updated.Status != model.EquipmentMaintenance {
		t.Errorf("expected MAINTENANCE, got %s", updated.Status)
	}

	items, total, _ := svc.ListEquipment(ctx, "maintenance", 1, 20)
	if total != 1 || len(items) != 1 {
		t.Errorf("expected one equipment in maintenance, got %d", total)
	}
}

func TestCatalogService_MaterialsAndSuppliers(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogService(env.catalog)
	ctx := context.Background()

	_, err := svc.CreateMaterial(ctx, MaterialDTO{Name: "Sand"})
	assertKind(t, err, apperror.KindValidation)

	if _, err := svc.CreateMaterial(ctx, MaterialDTO{Name: "Sand", Unit: "m3", UnitPrice: dec("30")}); err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	items, total, _ := svc.ListMaterials(ctx, "san", 1, 20)
	if total != 1 || items[0].Name != "Sand" {
		t.Errorf("search should find Sand, got %d", total)
	}

	_, err = svc.UpdateMaterial(ctx, 999, MaterialDTO{Name: "Gravel", Unit: "m3"})
	assertKind(t, err, apperror.KindNotFound)

	sup, err := svc.UpdateSupplier(ctx, env.supplier.ID, SupplierDTO{IsActive: ptr(false)})
	if err != nil {
		t.Fatalf("UpdateSupplier: %v", err)
	}
	if sup.IsActive || sup.Name != env.supplier.Name {
		t.Errorf("only is_active should change, got %+v", sup)
	}
	active, total, _ := svc.ListSuppliers(ctx, true, 1, 20)
	if total != 0 || len(active) != 0 {
		t.Errorf("no active suppliers expected, got %d", total)
	}
}
