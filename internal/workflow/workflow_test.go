package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/membership"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/notify"
	"github.com/Elizabethomito/nearby/internal/store/sqlite"
	"github.com/Elizabethomito/nearby/internal/store/storetest"
)

// pushRecorder is a Signaller that keeps every push.
type pushRecorder struct {
	mu     sync.Mutex
	pushes []notify.Push
}

func (r *pushRecorder) Signal(_ context.Context, p notify.Push) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, p)
}

type fixture struct {
	store  *sqlite.Store
	wf     *Workflow
	m      *membership.Manager
	pushes *pushRecorder
}

func newFixture(t *testing.T, capacity int) fixture {
	t.Helper()
	s := storetest.NewSQLite(t)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "alice")
	storetest.SeedUser(t, s, "bob")
	storetest.SeedEvent(t, s, "ev", "org", capacity, storetest.Private())
	rec := &pushRecorder{}
	wf := New(s, rec, nil)
	return fixture{store: s, wf: wf, m: membership.New(s, wf, nil), pushes: rec}
}

func (f fixture) requestStatus(t *testing.T, userID string) models.RequestStatus {
	t.Helper()
	r, err := f.store.FindRequest(context.Background(), "ev", userID)
	if err != nil {
		t.Fatalf("find request: %v", err)
	}
	return r.Status
}

func (f fixture) notificationCount(t *testing.T, myUserID string, kind models.NotificationType) int {
	t.Helper()
	var n int
	err := f.store.DB().QueryRow(
		`SELECT COUNT(*) FROM user_notifications WHERE my_user_id = ? AND item_id = 'ev' AND type = ?`,
		myUserID, kind).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRequestJoin_CreatesPendingAndNotifies(t *testing.T) {
	f := newFixture(t, 2)
	req, err := f.wf.RequestJoin(context.Background(), "ev", "alice")
	if err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if req.Status != models.RequestPending || req.OrganizerID != "org" {
		t.Errorf("request: %+v", req)
	}
	if n := f.notificationCount(t, "org", models.NotificationJoinRequest); n != 1 {
		t.Errorf("organizer notifications: got %d, want 1", n)
	}
	if len(f.pushes.pushes) != 1 || f.pushes.pushes[0].DeviceToken != "device-org" {
		t.Errorf("push: %+v", f.pushes.pushes)
	}
	// A request does not consume a slot.
	if e := storetest.Event(t, f.store, "ev"); e.AvailableSlots != 2 {
		t.Errorf("available_slots: got %d, want 2", e.AvailableSlots)
	}
}

func TestRequestJoin_Twice(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); !errors.Is(err, apperr.ErrAlreadyRequested) {
		t.Errorf("expected ErrAlreadyRequested, got %v", err)
	}
	if n := f.notificationCount(t, "org", models.NotificationJoinRequest); n != 1 {
		t.Errorf("organizer notifications: got %d, want 1", n)
	}
}

func TestRequestJoin_Errors(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	if err := f.store.SetUserBlocked(ctx, "bob", true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, eventID, userID string
		want                  error
	}{
		{"blocked user", "ev", "bob", apperr.ErrUserBlocked},
		{"unknown user", "ev", "ghost", apperr.ErrUserNotFound},
		{"unknown event", "nope", "alice", apperr.ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.wf.RequestJoin(ctx, tt.eventID, tt.userID); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestJoin_AlreadyAttendee(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.store.AddAttendee(ctx, "ev", "alice")
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); !errors.Is(err, apperr.ErrAlreadyMember) {
		t.Errorf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestResolve_Approve(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.wf.RequestJoin(ctx, "ev", "alice")

	req, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Status != models.RequestApproved || f.requestStatus(t, "alice") != models.RequestApproved {
		t.Errorf("status: %s", req.Status)
	}
	if ok, _ := f.store.IsAttendee(ctx, "ev", "alice"); !ok {
		t.Error("approved user should be an attendee")
	}
	if e := storetest.Event(t, f.store, "ev"); e.AvailableSlots != 1 {
		t.Errorf("available_slots: got %d, want 1", e.AvailableSlots)
	}
	storetest.AssertSlotAccounting(t, f.store, "ev")
	if n := f.notificationCount(t, "alice", models.NotificationJoinResponse); n != 1 {
		t.Errorf("requester notifications: got %d, want 1", n)
	}
}

func TestResolve_RejectThenApprove(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.wf.RequestJoin(ctx, "ev", "alice")

	if _, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved)
	if !errors.Is(err, apperr.ErrNoPendingRequest) {
		t.Fatalf("expected ErrNoPendingRequest, got %v", err)
	}
	if ok, _ := f.store.IsAttendee(ctx, "ev", "alice"); ok {
		t.Error("rejected user must not be attached")
	}
	if e := storetest.Event(t, f.store, "ev"); e.AvailableSlots != 2 {
		t.Errorf("available_slots: got %d, want 2", e.AvailableSlots)
	}
}

func TestResolve_NotOrganizer(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.wf.RequestJoin(ctx, "ev", "alice")
	if _, err := f.wf.Resolve(ctx, "ev", "bob", "alice", models.RequestApproved); !errors.Is(err, apperr.ErrNotOrganizer) {
		t.Errorf("expected ErrNotOrganizer, got %v", err)
	}
	if f.requestStatus(t, "alice") != models.RequestPending {
		t.Error("request should still be pending")
	}
}

func TestResolve_NoRequest(t *testing.T) {
	f := newFixture(t, 2)
	if _, err := f.wf.Resolve(context.Background(), "ev", "org", "alice", models.RequestApproved); !errors.Is(err, apperr.ErrNoPendingRequest) {
		t.Errorf("expected ErrNoPendingRequest, got %v", err)
	}
}

func TestResolve_InvalidDecision(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.wf.Resolve(context.Background(), "ev", "org", "alice", models.RequestCancelled)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

// Capacity 1: alice is approved, bob's approval fails and stays pending.
// After alice leaves, bob can be approved.
func TestResolve_CapacityOneScenario(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.wf.RequestJoin(ctx, "ev", "alice")
	f.wf.RequestJoin(ctx, "ev", "bob")

	if _, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved); err != nil {
		t.Fatalf("approve alice: %v", err)
	}
	_, err := f.wf.Resolve(ctx, "ev", "org", "bob", models.RequestApproved)
	if !errors.Is(err, apperr.ErrSlotsExhausted) {
		t.Fatalf("approve bob: expected ErrSlotsExhausted, got %v", err)
	}
	if f.requestStatus(t, "bob") != models.RequestPending {
		t.Error("bob's request should remain pending")
	}

	if _, err := f.m.Leave(ctx, "ev", "alice"); err != nil {
		t.Fatalf("alice leaves: %v", err)
	}
	if got := f.requestStatus(t, "alice"); got != models.RequestCancelled {
		t.Errorf("alice's request: got %s, want cancelled", got)
	}
	if _, err := f.wf.Resolve(ctx, "ev", "org", "bob", models.RequestApproved); err != nil {
		t.Fatalf("approve bob after leave: %v", err)
	}
	storetest.AssertSlotAccounting(t, f.store, "ev")
}

func TestRequestJoin_AfterCancelledOrRejected(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	// rejected → new pending
	f.wf.RequestJoin(ctx, "ev", "alice")
	f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestRejected)
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); err != nil {
		t.Fatalf("request after reject: %v", err)
	}
	if f.requestStatus(t, "alice") != models.RequestPending {
		t.Error("expected a fresh pending request")
	}

	// approved → leave → cancelled → new pending
	f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved)
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); !errors.Is(err, apperr.ErrAlreadyMember) {
		t.Errorf("request while approved: expected ErrAlreadyMember, got %v", err)
	}
	f.m.Leave(ctx, "ev", "alice")
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); err != nil {
		t.Fatalf("request after cancel: %v", err)
	}
	if f.requestStatus(t, "alice") != models.RequestPending {
		t.Error("expected a fresh pending request")
	}
}

func TestResolve_ApproveExistingAttendeeKeepsSlots(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.wf.RequestJoin(ctx, "ev", "alice")
	// Attached by another path while the request was pending.
	f.store.AddAttendee(ctx, "ev", "alice")
	f.store.TakeSlot(ctx, "ev")

	if _, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e := storetest.Event(t, f.store, "ev"); e.AvailableSlots != 1 {
		t.Errorf("available_slots: got %d, want 1", e.AvailableSlots)
	}
}

func TestResolve_ApproveExistingAttendeeOnFullEvent(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	if _, err := f.wf.RequestJoin(ctx, "ev", "alice"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	f.store.AddAttendee(ctx, "ev", "alice")
	f.store.TakeSlot(ctx, "ev")

	if _, err := f.wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.requestStatus(t, "alice") != models.RequestApproved {
		t.Error("request should be approved")
	}
	if e := storetest.Event(t, f.store, "ev"); e.AvailableSlots != 0 {
		t.Errorf("available_slots: got %d, want 0", e.AvailableSlots)
	}
	storetest.AssertSlotAccounting(t, f.store, "ev")
}

// failingNotifier makes every delivery fail.
type failingNotifier struct{}

func (failingNotifier) Send(context.Context, notify.Push) error { return errors.New("gateway down") }

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	s := storetest.NewSQLite(t)
	storetest.SeedUser(t, s, "org")
	storetest.SeedUser(t, s, "alice")
	storetest.SeedEvent(t, s, "ev", "org", 2, storetest.Private())
	d := notify.NewDispatcher(failingNotifier{}, nil, 0)
	wf := New(s, d, nil)
	ctx := context.Background()

	if _, err := wf.RequestJoin(ctx, "ev", "alice"); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}
	if _, err := wf.Resolve(ctx, "ev", "org", "alice", models.RequestApproved); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	d.Wait()
}

func TestResolve_ConcurrentApprovalsForLastSlot(t *testing.T) {
	s := storetest.NewSQLiteFile(t)
	storetest.SeedUser(t, s, "org")
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		storetest.SeedUser(t, s, u)
	}
	storetest.SeedEvent(t, s, "ev", "org", 1, storetest.Private())
	wf := New(s, nil, nil)
	ctx := context.Background()
	for _, u := range users {
		if _, err := wf.RequestJoin(ctx, "ev", u); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	results := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			_, results[i] = wf.Resolve(ctx, "ev", "org", u, models.RequestApproved)
		}(i, u)
	}
	wg.Wait()

	approved := 0
	for _, err := range results {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, apperr.ErrSlotsExhausted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if approved != 1 {
		t.Errorf("approved: got %d, want 1", approved)
	}
	storetest.AssertSlotAccounting(t, s, "ev")
}
