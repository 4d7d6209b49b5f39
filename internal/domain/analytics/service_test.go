package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

type mockRepo struct {
	lastEntityID  uuid.UUID
	lastLookahead int

	overview  ManufacturerOverview
	logistics DistributorLogistics
	authority AuthorityManagement
	unit      UnitStock
}

func (m *mockRepo) ManufacturerOverview(ctx context.Context, id uuid.UUID, now time.Time, lookaheadDays int) (*ManufacturerOverview, error) {
	m.lastEntityID, m.lastLookahead = id, lookaheadDays
	cp := m.overview
	return &cp, nil
}

func (m *mockRepo) DistributorLogistics(ctx context.Context, id uuid.UUID) (*DistributorLogistics, error) {
	m.lastEntityID = id
	cp := m.logistics
	return &cp, nil
}

func (m *mockRepo) AuthorityManagement(ctx context.Context, id uuid.UUID, now time.Time, lookaheadDays int) (*AuthorityManagement, error) {
	m.lastEntityID, m.lastLookahead = id, lookaheadDays
	cp := m.authority
	return &cp, nil
}

func (m *mockRepo) UnitStock(ctx context.Context, id uuid.UUID) (*UnitStock, error) {
	m.lastEntityID = id
	cp := m.unit
	return &cp, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := &mockRepo{}
	return NewService(repo, auth.NewPermissions(), 30, 60), repo
}

func TestManufacturerOverview_ScopedToOwnEntity(t *testing.T) {
	svc, repo := newTestService()
	entityID := uuid.New()
	actor := auth.Actor{ID: "a", Role: auth.RoleManufacturer, EntityID: &entityID}

	repo.overview = ManufacturerOverview{Lots: 4, DeliveredToPatients: 1}
	o, err := svc.ManufacturerOverview(context.Background(), actor, nil)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if repo.lastEntityID != entityID {
		t.Errorf("queried entity %s, want actor's own %s", repo.lastEntityID, entityID)
	}
	if repo.lastLookahead != 30 {
		t.Errorf("lookahead = %d, want 30", repo.lastLookahead)
	}
	if o.DeliveryRate != 0.25 {
		t.Errorf("delivery rate = %v, want 0.25", o.DeliveryRate)
	}
}

func TestManufacturerOverview_NoLotsZeroRate(t *testing.T) {
	svc, repo := newTestService()
	entityID := uuid.New()
	actor := auth.Actor{ID: "a", Role: auth.RoleManufacturer, EntityID: &entityID}

	repo.overview = ManufacturerOverview{}
	o, err := svc.ManufacturerOverview(context.Background(), actor, nil)
	if err != nil {
		t.Fatal(err)
	}
	if o.DeliveryRate != 0 {
		t.Errorf("delivery rate = %v, want 0 for empty catalog", o.DeliveryRate)
	}
}

func TestDashboards_WrongRoleForbidden(t *testing.T) {
	svc, _ := newTestService()
	entityID := uuid.New()
	patient := auth.Actor{ID: "p", Role: auth.RolePatient, EntityID: &entityID}

	if _, err := svc.ManufacturerOverview(context.Background(), patient, nil); !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("manufacturer overview: expected Forbidden, got %v", err)
	}
	if _, err := svc.UnitStock(context.Background(), patient, nil); !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("unit stock: expected Forbidden, got %v", err)
	}
}

func TestDashboards_UnregisteredActorConflicts(t *testing.T) {
	svc, _ := newTestService()
	actor := auth.Actor{ID: "d", Role: auth.RoleDistributor}

	_, err := svc.DistributorLogistics(context.Background(), actor, nil)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict for unregistered actor, got %v", err)
	}
}

func TestDashboards_AdminMustNameEntity(t *testing.T) {
	svc, repo := newTestService()
	admin := auth.Actor{ID: "root", Role: auth.RoleAdministrator}

	if _, err := svc.AuthorityManagement(context.Background(), admin, nil); !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected Validation without entity_id, got %v", err)
	}

	target := uuid.New()
	if _, err := svc.AuthorityManagement(context.Background(), admin, &target); err != nil {
		t.Fatalf("admin with entity_id: %v", err)
	}
	if repo.lastEntityID != target {
		t.Errorf("queried entity %s, want requested %s", repo.lastEntityID, target)
	}
	if repo.lastLookahead != 60 {
		t.Errorf("lookahead = %d, want 60", repo.lastLookahead)
	}
}

func TestAuthorityManagement_OnHandDerived(t *testing.T) {
	svc, repo := newTestService()
	entityID := uuid.New()
	actor := auth.Actor{ID: "a", Role: auth.RoleRegionalAuthority, EntityID: &entityID}

	repo.authority = AuthorityManagement{Received: 10, Forwarded: 7, Committed: 2}
	a, err := svc.AuthorityManagement(context.Background(), actor, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.OnHand != 3 {
		t.Errorf("on hand = %d, want 3", a.OnHand)
	}
}

func TestUnitStock_OnHandDerived(t *testing.T) {
	svc, repo := newTestService()
	entityID := uuid.New()
	actor := auth.Actor{ID: "u", Role: auth.RoleLocalUnit, EntityID: &entityID}

	repo.unit = UnitStock{Received: 5, Dispensed: 5}
	u, err := svc.UnitStock(context.Background(), actor, nil)
	if err != nil {
		t.Fatal(err)
	}
	if u.OnHand != 0 {
		t.Errorf("on hand = %d, want 0", u.OnHand)
	}
}
