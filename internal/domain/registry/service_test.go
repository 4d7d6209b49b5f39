package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

type mockRepo struct {
	entities map[uuid.UUID]*Entity
	refs     map[uuid.UUID]bool // referenced rows refuse deletion
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		entities: make(map[uuid.UUID]*Entity),
		refs:     make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) Create(ctx context.Context, e *Entity) error {
	for _, ex := range m.entities {
		if ex.OwnerActorID == e.OwnerActorID {
			return fault.Conflict("actor already owns an entity")
		}
	}
	e.ID = uuid.New()
	m.entities[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return nil, fault.NotFound("entity not found")
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) GetByOwner(ctx context.Context, owner string) (*Entity, error) {
	for _, e := range m.entities {
		if e.OwnerActorID == owner {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fault.NotFound("entity not found")
}

func (m *mockRepo) List(ctx context.Context, t EntityType, limit, offset int) ([]*Entity, int, error) {
	var items []*Entity
	for _, e := range m.entities {
		if e.Type == t {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Update(ctx context.Context, e *Entity) error {
	if _, ok := m.entities[e.ID]; !ok {
		return fault.NotFound("entity not found")
	}
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.entities[id]; !ok {
		return fault.NotFound("entity not found")
	}
	if m.refs[id] {
		return fault.Conflict("entity is referenced by existing records")
	}
	delete(m.entities, id)
	return nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, auth.NewPermissions()), repo
}

func distributorActor(id string) auth.Actor {
	return auth.Actor{ID: id, Role: auth.RoleDistributor}
}

func TestCreate_SetsOwnerFromActor(t *testing.T) {
	svc, _ := newTestService()
	actor := distributorActor("actor-1")

	e, err := svc.Create(context.Background(), actor, &Entity{
		Type: TypeDistributor, Name: "Sul Logistics", Document: "11222333000144",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.OwnerActorID != "actor-1" {
		t.Errorf("owner = %q, want actor-1", e.OwnerActorID)
	}
}

func TestCreate_SecondEntityForActorConflicts(t *testing.T) {
	svc, _ := newTestService()
	actor := distributorActor("actor-1")
	ctx := context.Background()

	if _, err := svc.Create(ctx, actor, &Entity{Type: TypeDistributor, Name: "First", Document: "1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, actor, &Entity{Type: TypeDistributor, Name: "Second", Document: "2"})
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict for second registration, got %v", err)
	}
}

func TestCreate_TypeMustMatchRole(t *testing.T) {
	svc, _ := newTestService()
	actor := distributorActor("actor-1")

	_, err := svc.Create(context.Background(), actor, &Entity{
		Type: TypeManufacturer, Name: "Nope", Document: "1",
	})
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden for mismatched type, got %v", err)
	}
}

func TestCreate_UnitRequiresAuthorityParent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	admin := auth.Actor{ID: "admin", Role: auth.RoleAdministrator}

	// No parent at all
	_, err := svc.Create(ctx, admin, &Entity{
		Type: TypeUnit, Name: "UBS Centro", Document: "3", OwnerActorID: "unit-actor",
	})
	if !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected Validation without parent, got %v", err)
	}

	// Parent of the wrong type
	dist := &Entity{Type: TypeDistributor, Name: "D", Document: "4", OwnerActorID: "d-actor"}
	if err := repo.Create(ctx, dist); err != nil {
		t.Fatal(err)
	}
	_, err = svc.Create(ctx, admin, &Entity{
		Type: TypeUnit, Name: "UBS Centro", Document: "3",
		OwnerActorID: "unit-actor", ParentID: &dist.ID,
	})
	if !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected Validation for wrong parent type, got %v", err)
	}

	// Correct parent
	authr := &Entity{Type: TypeAuthority, Name: "SUS Regional", Document: "5", OwnerActorID: "a-actor"}
	if err := repo.Create(ctx, authr); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, admin, &Entity{
		Type: TypeUnit, Name: "UBS Centro", Document: "3",
		OwnerActorID: "unit-actor", ParentID: &authr.ID,
	}); err != nil {
		t.Fatalf("create with valid parent: %v", err)
	}
}

func TestUpdate_RestrictedToDisplayFields(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := distributorActor("actor-1")

	e := &Entity{Type: TypeDistributor, Name: "Before", Document: "1", OwnerActorID: "actor-1"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Update(ctx, actor, TypeDistributor, e.ID, &Entity{Name: "After"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "After" {
		t.Errorf("name = %q, want After", got.Name)
	}
	if got.OwnerActorID != "actor-1" {
		t.Errorf("owner changed to %q", got.OwnerActorID)
	}
	if got.Document != "1" {
		t.Errorf("document changed to %q", got.Document)
	}
}

func TestUpdate_OtherActorsRowForbidden(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	e := &Entity{Type: TypeDistributor, Name: "Owned", Document: "1", OwnerActorID: "actor-1"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Update(ctx, distributorActor("actor-2"), TypeDistributor, e.ID, &Entity{Name: "Hijack"})
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestDelete_ReferencedEntityConflicts(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	actor := distributorActor("actor-1")

	e := &Entity{Type: TypeDistributor, Name: "Busy", Document: "1", OwnerActorID: "actor-1"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}
	repo.refs[e.ID] = true

	err := svc.Delete(ctx, actor, TypeDistributor, e.ID)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict for referenced entity, got %v", err)
	}
}

func TestOwn_IncompleteRegistrationConflicts(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Own(context.Background(), distributorActor("ghost"))
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict for unregistered actor, got %v", err)
	}
}

func TestGet_WrongTypeIsNotFound(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	e := &Entity{Type: TypeDistributor, Name: "D", Document: "1", OwnerActorID: "actor-1"}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatal(err)
	}

	admin := auth.Actor{ID: "admin", Role: auth.RoleAdministrator}
	_, err := svc.Get(ctx, admin, TypeManufacturer, e.ID)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected NotFound across types, got %v", err)
	}
}
