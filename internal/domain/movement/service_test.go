package movement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/domain/registry"
	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

type mockRepo struct {
	handoffs map[uuid.UUID]*Handoff
	// beforeWrite runs just before a conditional write, standing in for a
	// concurrent writer that slips between the service's read and its write.
	beforeWrite func()
}

func (m *mockRepo) race() {
	if m.beforeWrite != nil {
		m.beforeWrite()
		m.beforeWrite = nil
	}
}

func (m *mockRepo) Create(ctx context.Context, h *Handoff) error {
	h.ID = uuid.New()
	cp := *h
	m.handoffs[h.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Handoff, error) {
	h, ok := m.handoffs[id]
	if !ok || h.Kind != kind {
		return nil, fault.NotFound("handoff not found")
	}
	cp := *h
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Handoff, int, error) {
	var items []*Handoff
	for _, h := range m.handoffs {
		if h.Kind != f.Kind {
			continue
		}
		if f.Status != nil && h.Status != *f.Status {
			continue
		}
		if f.LotID != nil && h.LotID != *f.LotID {
			continue
		}
		if f.OriginEntityID != nil && h.OriginEntityID != *f.OriginEntityID {
			continue
		}
		if f.DestinationEntityID != nil && h.DestinationEntityID != *f.DestinationEntityID {
			continue
		}
		cp := *h
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) UpdateMutable(ctx context.Context, h *Handoff) (bool, error) {
	m.race()
	cur, ok := m.handoffs[h.ID]
	if !ok || cur.Status != StatusInTransit {
		return false, nil
	}
	cur.Quantity = h.Quantity
	cur.Note = h.Note
	return true, nil
}

func (m *mockRepo) Confirm(ctx context.Context, kind Kind, id uuid.UUID, receivedAt time.Time) (bool, error) {
	m.race()
	h, ok := m.handoffs[id]
	if !ok || h.Kind != kind || h.Status != StatusInTransit {
		return false, nil
	}
	h.Status = StatusReceived
	h.ReceivedAt = &receivedAt
	return true, nil
}

func (m *mockRepo) CancelPending(ctx context.Context, kind Kind, id uuid.UUID) (bool, error) {
	m.race()
	h, ok := m.handoffs[id]
	if !ok || h.Kind != kind || h.Status != StatusInTransit {
		return false, nil
	}
	delete(m.handoffs, id)
	return true, nil
}

func (m *mockRepo) CountReceivedInbound(ctx context.Context, kind Kind, lotID, entityID uuid.UUID) (int, error) {
	n := 0
	for _, h := range m.handoffs {
		if h.Kind == kind && h.LotID == lotID && h.DestinationEntityID == entityID && h.Status == StatusReceived {
			n++
		}
	}
	return n, nil
}

type mockEntities struct {
	types map[uuid.UUID]registry.EntityType
}

func (m *mockEntities) EntityType(ctx context.Context, id uuid.UUID) (registry.EntityType, error) {
	t, ok := m.types[id]
	if !ok {
		return "", fault.NotFound("entity not found")
	}
	return t, nil
}

type mockLots struct {
	lots map[uuid.UUID]bool
}

func (m *mockLots) LotExists(ctx context.Context, id uuid.UUID) error {
	if !m.lots[id] {
		return fault.NotFound("lot not found")
	}
	return nil
}

type chain struct {
	svc         *Service
	repo        *mockRepo
	ents        *mockEntities
	lot         uuid.UUID
	distributor uuid.UUID
	authority   uuid.UUID
	unit        uuid.UUID
	patient     uuid.UUID
}

func newChain(t *testing.T, enforce bool) *chain {
	t.Helper()
	repo := &mockRepo{handoffs: make(map[uuid.UUID]*Handoff)}
	ents := &mockEntities{types: make(map[uuid.UUID]registry.EntityType)}
	lots := &mockLots{lots: make(map[uuid.UUID]bool)}

	c := &chain{
		svc:         NewService(repo, ents, lots, auth.NewPermissions(), enforce),
		repo:        repo,
		ents:        ents,
		lot:         uuid.New(),
		distributor: uuid.New(),
		authority:   uuid.New(),
		unit:        uuid.New(),
		patient:     uuid.New(),
	}
	lots.lots[c.lot] = true
	ents.types[c.distributor] = registry.TypeDistributor
	ents.types[c.authority] = registry.TypeAuthority
	ents.types[c.unit] = registry.TypeUnit
	ents.types[c.patient] = registry.TypePatient
	return c
}

func actorFor(role auth.Role, entityID uuid.UUID) auth.Actor {
	return auth.Actor{ID: "actor-" + string(role), Role: role, EntityID: &entityID}
}

func (c *chain) distributorActor() auth.Actor {
	return actorFor(auth.RoleDistributor, c.distributor)
}

func (c *chain) authorityActor() auth.Actor { return actorFor(auth.RoleRegionalAuthority, c.authority) }
func (c *chain) unitActor() auth.Actor      { return actorFor(auth.RoleLocalUnit, c.unit) }

func (c *chain) ship(t *testing.T) *Handoff {
	t.Helper()
	h, err := c.svc.Create(context.Background(), c.distributorActor(), KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: c.authority,
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	return h
}

func TestCreate_StartsInTransit(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)

	if h.Status != StatusInTransit {
		t.Errorf("status = %s, want %s", h.Status, StatusInTransit)
	}
	if h.ReceivedAt != nil {
		t.Error("received_at must be unset while in transit")
	}
	if h.OriginEntityID != c.distributor {
		t.Errorf("origin = %s, want sender's own entity %s", h.OriginEntityID, c.distributor)
	}
	if h.SentAt.IsZero() {
		t.Error("sent_at must be set at creation")
	}
}

func TestCreate_WrongDestinationTypeRejected(t *testing.T) {
	c := newChain(t, false)
	_, err := c.svc.Create(context.Background(), c.distributorActor(), KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: c.unit,
	})
	if !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected Validation for unit destination on a distributor stage, got %v", err)
	}
}

func TestCreate_UnknownLotNotFound(t *testing.T) {
	c := newChain(t, false)
	_, err := c.svc.Create(context.Background(), c.distributorActor(), KindDistributorToAuthority, &Handoff{
		LotID: uuid.New(), DestinationEntityID: c.authority,
	})
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected NotFound for unknown lot, got %v", err)
	}
}

func TestCreate_UnregisteredActorConflicts(t *testing.T) {
	c := newChain(t, false)
	actor := auth.Actor{ID: "a", Role: auth.RoleDistributor}
	_, err := c.svc.Create(context.Background(), actor, KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: c.authority,
	})
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict for unregistered actor, got %v", err)
	}
}

func TestCreate_RoleWithoutStageForbidden(t *testing.T) {
	c := newChain(t, false)
	_, err := c.svc.Create(context.Background(), c.authorityActor(), KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: c.authority,
	})
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden for authority creating a distributor stage, got %v", err)
	}
}

func TestConfirm_SetsReceivedAt(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)

	got, err := c.svc.Confirm(context.Background(), c.authorityActor(), KindDistributorToAuthority, h.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != StatusReceived {
		t.Errorf("status = %s, want %s", got.Status, StatusReceived)
	}
	if got.ReceivedAt == nil {
		t.Error("received_at must be set on confirmation")
	}
}

func TestConfirm_SecondConfirmConflicts(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)
	ctx := context.Background()

	if _, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict on second confirm, got %v", err)
	}
}

func TestConfirm_LostConditionalWriteConflicts(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)
	ctx := context.Background()

	// A concurrent confirmation lands between the service's status read and
	// its conditional write; the second writer must get Conflict.
	c.repo.beforeWrite = func() {
		now := time.Now()
		c.repo.handoffs[h.ID].Status = StatusReceived
		c.repo.handoffs[h.ID].ReceivedAt = &now
	}

	_, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict when the conditional write loses, got %v", err)
	}
}

func TestConfirm_WrongDestinationForbidden(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)

	other := actorFor(auth.RoleRegionalAuthority, uuid.New())
	_, err := c.svc.Confirm(context.Background(), other, KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden for another authority, got %v", err)
	}
	if got, _ := c.repo.GetByID(context.Background(), KindDistributorToAuthority, h.ID); got.Status != StatusInTransit {
		t.Error("failed confirm must not change the row")
	}
}

func TestCancel_RemovesPendingHandoff(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)
	ctx := context.Background()

	if err := c.svc.Cancel(ctx, c.distributorActor(), KindDistributorToAuthority, h.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := c.svc.Get(ctx, c.distributorActor(), KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected NotFound after cancel, got %v", err)
	}
}

func TestCancel_ReceivedHandoffConflicts(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)
	ctx := context.Background()

	if _, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID); err != nil {
		t.Fatal(err)
	}
	err := c.svc.Cancel(ctx, c.distributorActor(), KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict cancelling a received handoff, got %v", err)
	}
}

func TestUpdate_ReceivedHandoffConflicts(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)
	ctx := context.Background()

	if _, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID); err != nil {
		t.Fatal(err)
	}
	qty := 5
	_, err := c.svc.Update(ctx, c.distributorActor(), KindDistributorToAuthority, h.ID, &qty, nil)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict updating a received handoff, got %v", err)
	}
}

func TestList_PatientCannotSeeDistributorStage(t *testing.T) {
	c := newChain(t, false)
	c.ship(t)

	patient := actorFor(auth.RolePatient, c.patient)
	_, _, err := c.svc.List(context.Background(), patient, Filter{Kind: KindDistributorToAuthority}, 20, 0)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden for patient on distributor stage, got %v", err)
	}
}

func TestList_ScopedToOwnEnd(t *testing.T) {
	c := newChain(t, false)
	c.ship(t)
	ctx := context.Background()

	otherAuthority := uuid.New()
	c.ents.types[otherAuthority] = registry.TypeAuthority
	if _, err := c.svc.Create(ctx, c.distributorActor(), KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: otherAuthority,
	}); err != nil {
		t.Fatalf("second ship: %v", err)
	}

	items, total, err := c.svc.List(ctx, c.authorityActor(), Filter{Kind: KindDistributorToAuthority}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("authority should see 1 inbound handoff, got %d", total)
	}
	if items[0].DestinationEntityID != c.authority {
		t.Error("authority listing leaked another destination's row")
	}
}

func TestGet_OtherEntitysHandoffForbidden(t *testing.T) {
	c := newChain(t, false)
	h := c.ship(t)

	other := actorFor(auth.RoleDistributor, uuid.New())
	_, err := c.svc.Get(context.Background(), other, KindDistributorToAuthority, h.ID)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected Forbidden for another distributor, got %v", err)
	}
}

func TestCreate_ChainRequiresUpstreamReceipt(t *testing.T) {
	c := newChain(t, true)
	ctx := context.Background()

	_, err := c.svc.Create(ctx, c.authorityActor(), KindAuthorityToUnit, &Handoff{
		LotID: c.lot, DestinationEntityID: c.unit,
	})
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected Conflict without a confirmed upstream receipt, got %v", err)
	}

	h := c.ship(t)
	if _, err := c.svc.Confirm(ctx, c.authorityActor(), KindDistributorToAuthority, h.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.svc.Create(ctx, c.authorityActor(), KindAuthorityToUnit, &Handoff{
		LotID: c.lot, DestinationEntityID: c.unit,
	}); err != nil {
		t.Fatalf("create after upstream receipt: %v", err)
	}
}

func TestCreate_ChainDisabledSkipsUpstreamCheck(t *testing.T) {
	c := newChain(t, false)
	_, err := c.svc.Create(context.Background(), c.authorityActor(), KindAuthorityToUnit, &Handoff{
		LotID: c.lot, DestinationEntityID: c.unit,
	})
	if err != nil {
		t.Fatalf("create with chain policy disabled: %v", err)
	}
}

func TestCreate_FirstStageHasNoUpstream(t *testing.T) {
	c := newChain(t, true)
	if _, err := c.svc.Create(context.Background(), c.distributorActor(), KindDistributorToAuthority, &Handoff{
		LotID: c.lot, DestinationEntityID: c.authority,
	}); err != nil {
		t.Fatalf("first stage must not require an upstream receipt: %v", err)
	}
}

func TestParseKind_RejectsUnknown(t *testing.T) {
	if _, err := ParseKind("warehouse-to-moon"); !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
	if k, err := ParseKind("unit-to-patient"); err != nil || k != KindUnitToPatient {
		t.Fatalf("parse: %v %v", k, err)
	}
}
