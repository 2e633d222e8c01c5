package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/general/logger"
	"smart-valet/internal/general/shortcode"
	"smart-valet/internal/ports"
)

// ----- test doubles -----

// noopUOW runs the function without a real transaction.
type noopUOW struct{}

func (noopUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memRepo is an in-memory VehicleRepository honouring the conditional
// transition contract. staleTimes makes the next N transitions report a
// lost race without touching stored state, which is how a concurrent
// writer's commit looks to this caller.
type memRepo struct {
	mu         sync.Mutex
	seq        int
	rows       map[string]*vehicle.Vehicle
	staleTimes int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*vehicle.Vehicle)}
}

func (r *memRepo) Create(_ context.Context, v *vehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	v.ID = fmt.Sprintf("veh-%d", r.seq)
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt

	cp := *v
	r.rows[v.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*vehicle.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, vehicle.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memRepo) GetByToken(_ context.Context, token string) (*vehicle.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var delivered *vehicle.Vehicle
	for _, row := range r.rows {
		if row.AccessToken != token || token == "" {
			continue
		}
		if !row.Status.Terminal() {
			cp := *row
			return &cp, nil
		}
		if delivered == nil || row.UpdatedAt.After(delivered.UpdatedAt) {
			delivered = row
		}
	}
	if delivered != nil {
		cp := *delivered
		return &cp, nil
	}
	return nil, vehicle.ErrNotFound
}

func (r *memRepo) TokenInUse(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.AccessToken == token && token != "" && !row.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) GetByPlate(_ context.Context, plate string) (*vehicle.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *vehicle.Vehicle
	for _, row := range r.rows {
		if row.PlateNumber != plate || row.Status.Terminal() {
			continue
		}
		if oldest == nil || row.CreatedAt.Before(oldest.CreatedAt) {
			oldest = row
		}
	}
	if oldest == nil {
		return nil, vehicle.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (r *memRepo) ListActive(_ context.Context) ([]*vehicle.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*vehicle.Vehicle
	for _, row := range r.rows {
		if row.Status.Terminal() {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) CompareAndTransition(_ context.Context, id string, expected, next vehicle.Status, patch ports.VehiclePatch) (*vehicle.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, vehicle.ErrNotFound
	}

	if r.staleTimes > 0 {
		r.staleTimes--
		return nil, fmt.Errorf("%w: have %s, expected %s", vehicle.ErrStaleState, row.Status, expected)
	}

	if row.Status != expected {
		return nil, fmt.Errorf("%w: have %s, expected %s", vehicle.ErrStaleState, row.Status, expected)
	}

	row.Status = next
	if patch.AccessToken != nil {
		row.AccessToken = *patch.AccessToken
	}
	if patch.PhoneContact != nil {
		row.PhoneContact = *patch.PhoneContact
	}
	row.UpdatedAt = time.Now().UTC()

	cp := *row
	return &cp, nil
}

// captureBroadcaster records every broadcast on a channel. Broadcast runs
// off the caller's goroutine, so tests read with a timeout.
type captureBroadcaster struct {
	events chan notification.Event
}

func newCaptureBroadcaster() *captureBroadcaster {
	return &captureBroadcaster{events: make(chan notification.Event, 16)}
}

func (b *captureBroadcaster) Broadcast(_ context.Context, ev notification.Event) {
	b.events <- ev
}

func (b *captureBroadcaster) wait(t *testing.T) notification.Event {
	t.Helper()
	select {
	case ev := <-b.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast event")
		return notification.Event{}
	}
}

func (b *captureBroadcaster) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-b.events:
		t.Fatalf("unexpected broadcast event: %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func newTestService(t *testing.T) (ports.ValetService, *memRepo, *captureBroadcaster) {
	t.Helper()

	repo := newMemRepo()
	bus := newCaptureBroadcaster()
	svc := NewValetService(
		logger.New("valet-service-test"),
		noopUOW{},
		repo,
		shortcode.NewIssuer(8, 5),
		bus,
		"http://localhost:3000/",
	)
	return svc, repo, bus
}

// ----- check-in and listing -----

func TestCreateVehicle(t *testing.T) {
	svc, _, _ := newTestService(t)

	v, err := svc.CreateVehicle(context.Background(), "  abc-123 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == "" {
		t.Fatal("created vehicle must get an id")
	}
	if v.PlateNumber != "ABC-123" {
		t.Errorf("plate = %q, want normalized ABC-123", v.PlateNumber)
	}
	if v.Status != vehicle.StatusIdle {
		t.Errorf("status = %s, want IDLE", v.Status)
	}
}

func TestCreateVehicleRejectsBlankPlate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateVehicle(context.Background(), "   ")
	if !errors.Is(err, vehicle.ErrEmptyPlate) {
		t.Fatalf("err = %v, want ErrEmptyPlate", err)
	}
}

func TestListActiveVehiclesExcludesDelivered(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	kept, _ := svc.CreateVehicle(ctx, "KEEP-1")
	gone, _ := svc.CreateVehicle(ctx, "GONE-1")
	if _, err := svc.MarkDelivered(ctx, gone.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	active, err := svc.ListActiveVehicles(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Fatalf("active = %+v, want only %s", active, kept.ID)
	}
}

// ----- link issuing -----

func TestIssueLink(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")

	res, err := svc.IssueLink(ctx, v.ID, "+15550100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Token) != 8 {
		t.Errorf("token length = %d, want 8", len(res.Token))
	}
	wantLink := "http://localhost:3000/request?code=" + res.Token
	if res.Link != wantLink {
		t.Errorf("link = %q, want %q", res.Link, wantLink)
	}

	got, err := svc.GetVehicleByToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("token lookup: %v", err)
	}
	if got.Status != vehicle.StatusLinkIssued {
		t.Errorf("status = %s, want LINK_ISSUED", got.Status)
	}
	if got.PhoneContact != "+15550100" {
		t.Errorf("phone = %q, want stored contact", got.PhoneContact)
	}
}

func TestIssueLinkReissueReplacesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")

	first, err := svc.IssueLink(ctx, v.ID, "")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.IssueLink(ctx, v.ID, "")
	if err != nil {
		t.Fatalf("re-issue: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("re-issue must mint a different token")
	}

	// the replaced token is dead immediately
	if _, err := svc.GetVehicleByToken(ctx, first.Token); !errors.Is(err, vehicle.ErrNotFound) {
		t.Fatalf("old token lookup err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetVehicleByToken(ctx, second.Token); err != nil {
		t.Fatalf("new token lookup: %v", err)
	}
}

func TestIssueLinkRejectedAfterPickupRequested(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	res, _ := svc.IssueLink(ctx, v.ID, "")
	if _, err := svc.RequestPickup(ctx, res.Token); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	_, err := svc.IssueLink(ctx, v.ID, "")
	if !errors.Is(err, vehicle.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestIssueLinkUnknownVehicle(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.IssueLink(context.Background(), "veh-404", "")
	if !errors.Is(err, vehicle.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIssueLinkSurfacesPersistentConflict(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	repo.staleTimes = 2 // initial attempt and the retry both lose

	_, err := svc.IssueLink(ctx, v.ID, "")
	if !errors.Is(err, vehicle.ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}
}

// ----- pickup requests -----

func TestRequestPickupByCodeEmitsEvent(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	res, _ := svc.IssueLink(ctx, v.ID, "")

	got, err := svc.RequestPickup(ctx, res.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != vehicle.StatusRequested {
		t.Errorf("status = %s, want REQUESTED", got.Status)
	}

	ev := bus.wait(t)
	if ev.Kind != notification.KindVehicleRequested {
		t.Errorf("event kind = %s, want VEHICLE_REQUESTED", ev.Kind)
	}
	if ev.VehicleID != v.ID {
		t.Errorf("event vehicle = %s, want %s", ev.VehicleID, v.ID)
	}
	if !strings.Contains(ev.Message, "ABC-123") {
		t.Errorf("event message %q must name the plate", ev.Message)
	}
}

func TestRequestPickupIsIdempotent(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	res, _ := svc.IssueLink(ctx, v.ID, "")

	if _, err := svc.RequestPickup(ctx, res.Token); err != nil {
		t.Fatalf("first pickup: %v", err)
	}
	bus.wait(t)

	// a re-submitted page must succeed without re-alerting staff
	got, err := svc.RequestPickup(ctx, res.Token)
	if err != nil {
		t.Fatalf("second pickup: %v", err)
	}
	if got.Status != vehicle.StatusRequested {
		t.Errorf("status = %s, want REQUESTED", got.Status)
	}
	bus.expectNone(t)
}

func TestRequestPickupByPlate(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateVehicle(ctx, "ABC-123"); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.RequestPickup(ctx, "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != vehicle.StatusRequested {
		t.Errorf("status = %s, want REQUESTED", got.Status)
	}
	bus.wait(t)
}

func TestRequestPickupUnknownInput(t *testing.T) {
	svc, _, bus := newTestService(t)

	_, err := svc.RequestPickup(context.Background(), "nope")
	if !errors.Is(err, vehicle.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	bus.expectNone(t)
}

func TestRequestPickupLostRaceResolvesQuietly(t *testing.T) {
	svc, repo, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	res, _ := svc.IssueLink(ctx, v.ID, "")

	// the conditional update loses; the fresh read is this caller's answer
	repo.staleTimes = 1

	got, err := svc.RequestPickup(ctx, res.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected the fresh vehicle state")
	}
	bus.expectNone(t)
}

// ----- delivery -----

func TestMarkDeliveredEmitsEvent(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")

	got, err := svc.MarkDelivered(ctx, v.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != vehicle.StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", got.Status)
	}

	ev := bus.wait(t)
	if ev.Kind != notification.KindVehicleDelivered {
		t.Errorf("event kind = %s, want VEHICLE_DELIVERED", ev.Kind)
	}
}

func TestMarkDeliveredIsIdempotent(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	if _, err := svc.MarkDelivered(ctx, v.ID); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	bus.wait(t)

	got, err := svc.MarkDelivered(ctx, v.ID)
	if err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if got.Status != vehicle.StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", got.Status)
	}
	bus.expectNone(t)
}

func TestMarkDeliveredRetriesAfterLostRace(t *testing.T) {
	svc, repo, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	repo.staleTimes = 1

	got, err := svc.MarkDelivered(ctx, v.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != vehicle.StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", got.Status)
	}
	bus.wait(t)
}

func TestMarkDeliveredSurfacesPersistentConflict(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	repo.staleTimes = 2

	_, err := svc.MarkDelivered(ctx, v.ID)
	if !errors.Is(err, vehicle.ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}
}

// ----- full lifecycle -----

func TestStalePickupPageAfterDelivery(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	v, _ := svc.CreateVehicle(ctx, "ABC-123")
	res, _ := svc.IssueLink(ctx, v.ID, "")
	if _, err := svc.RequestPickup(ctx, res.Token); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	bus.wait(t)
	if _, err := svc.MarkDelivered(ctx, v.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	bus.wait(t)

	// the customer's old tab re-submits: success, final state, no alert
	got, err := svc.RequestPickup(ctx, res.Token)
	if err != nil {
		t.Fatalf("stale re-submit: %v", err)
	}
	if got.Status != vehicle.StatusDelivered {
		t.Errorf("status = %s, want DELIVERED", got.Status)
	}
	bus.expectNone(t)

	// and the status page keeps resolving
	page, err := svc.GetVehicleByToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("status page lookup: %v", err)
	}
	if page.Status != vehicle.StatusDelivered {
		t.Errorf("page status = %s, want DELIVERED", page.Status)
	}
}
