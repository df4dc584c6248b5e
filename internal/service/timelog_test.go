package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/testutil"
)

func locationJSON(lat, lng float64) json.RawMessage {
	b, _ := json.Marshal(model.Location{Latitude: lat, Longitude: lng, Timestamp: "2025-01-01T09:00:00Z", Accuracy: 10})
	// the browser client double-encodes the object as a string
	s, _ := json.Marshal(string(b))
	return s
}

func newTimeLogService(store *testutil.Store, clock *testutil.Clock, events *testutil.Events) *TimeLogService {
	svc := NewTimeLogService(store.TimeLogs(), events, testutil.Logger())
	svc.Now = clock.Now
	return svc
}

func TestClockInOutScenario(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	events := &testutil.Events{}
	svc := newTimeLogService(store, clock, events)
	ctx := context.Background()
	const worker = 7

	tl, err := svc.ClockIn(ctx, worker, ClockInput{Location: locationJSON(52.5, 13.4), Note: "front desk"})
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if tl.Status != model.StatusPending || tl.ClockOutTime != nil || !tl.ClockInTime.Equal(t0) {
		t.Fatalf("new log = %+v", tl)
	}

	clock.Advance(2 * time.Hour)
	_, err = svc.ClockIn(ctx, worker, ClockInput{Location: locationJSON(52.5, 13.4)})
	wantKind(t, err, KindConflict)
	if Message(err) != "You are already clocked in. Please clock out first." {
		t.Fatalf("message = %q", Message(err))
	}
	if n := store.TimeLogCount(); n != 1 {
		t.Fatalf("log count = %d", n)
	}

	active, err := svc.Active(ctx, worker)
	if err != nil || active == nil || active.ID != tl.ID {
		t.Fatalf("active = %+v, %v", active, err)
	}

	clock.Set(time.Date(2025, 1, 1, 17, 30, 0, 0, time.UTC))
	closed, err := svc.ClockOut(ctx, worker, tl.ID, ClockInput{Location: locationJSON(52.51, 13.41)})
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if got := closed.Duration(); got != "8h 30m" {
		t.Fatalf("duration = %q", got)
	}
	if closed.WorkerNote == nil || *closed.WorkerNote != "front desk" {
		t.Fatalf("clock-in note not preserved: %v", closed.WorkerNote)
	}

	_, err = svc.ClockOut(ctx, worker, tl.ID, ClockInput{Location: locationJSON(52.51, 13.41)})
	wantKind(t, err, KindConflict)

	if active, _ := svc.Active(ctx, worker); active != nil {
		t.Fatalf("still active: %+v", active)
	}

	want := []string{"timelog.clocked_in", "timelog.clocked_out"}
	if got := events.Types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v", got)
	}
}

func TestClockOutReplacesNoteWhenGiven(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	svc := newTimeLogService(store, clock, &testutil.Events{})
	ctx := context.Background()

	tl, err := svc.ClockIn(ctx, 1, ClockInput{Location: locationJSON(1, 1), Note: "start"})
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)
	closed, err := svc.ClockOut(ctx, 1, tl.ID, ClockInput{Location: locationJSON(1, 1), Note: "left early"})
	if err != nil {
		t.Fatal(err)
	}
	if *closed.WorkerNote != "left early" {
		t.Fatalf("note = %q", *closed.WorkerNote)
	}
}

func TestClockOutOwnershipAndMissing(t *testing.T) {
	store := testutil.NewStore()
	svc := newTimeLogService(store, testutil.NewClock(t0), &testutil.Events{})
	ctx := context.Background()

	tl, err := svc.ClockIn(ctx, 1, ClockInput{Location: locationJSON(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.ClockOut(ctx, 2, tl.ID, ClockInput{Location: locationJSON(1, 1)})
	wantKind(t, err, KindForbidden)

	_, err = svc.ClockOut(ctx, 1, 999, ClockInput{Location: locationJSON(1, 1)})
	wantKind(t, err, KindNotFound)
}

func TestClockInputValidation(t *testing.T) {
	svc := newTimeLogService(testutil.NewStore(), testutil.NewClock(t0), &testutil.Events{})
	ctx := context.Background()

	cases := []ClockInput{
		{},
		{Location: locationJSON(90.5, 0)},
		{Location: locationJSON(0, -180.5)},
		{Location: json.RawMessage(`{"latitude":1,"longitude":1}`)},
		{Location: locationJSON(1, 1), Note: strings.Repeat("n", 1001)},
	}
	for _, in := range cases {
		_, err := svc.ClockIn(ctx, 1, in)
		wantKind(t, err, KindValidation)
	}

	// out-of-range coordinates are rejected at clock-out too
	tl, err := svc.ClockIn(ctx, 1, ClockInput{Location: locationJSON(1, 1), Note: strings.Repeat("n", 1000)})
	if err != nil {
		t.Fatalf("1000-char note rejected: %v", err)
	}
	_, err = svc.ClockOut(ctx, 1, tl.ID, ClockInput{Location: locationJSON(-91, 1)})
	wantKind(t, err, KindValidation)
	_, err = svc.ClockOut(ctx, 1, tl.ID, ClockInput{Location: locationJSON(1, 181)})
	wantKind(t, err, KindValidation)
}

func TestGetOwnerOrAdmin(t *testing.T) {
	store := testutil.NewStore()
	svc := newTimeLogService(store, testutil.NewClock(t0), &testutil.Events{})
	ctx := context.Background()
	tl, err := svc.ClockIn(ctx, 5, ClockInput{Location: locationJSON(1, 1)})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, model.Actor{UserID: 5, Role: model.RoleWorker}, tl.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := svc.Get(ctx, model.Actor{UserID: 1, Role: model.RoleAdmin}, tl.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	_, err = svc.Get(ctx, model.Actor{UserID: 6, Role: model.RoleWorker}, tl.ID)
	wantKind(t, err, KindForbidden)
}

func TestAdminUpdate(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	svc := newTimeLogService(store, clock, &testutil.Events{})
	ctx := context.Background()

	tl, err := svc.ClockIn(ctx, 3, ClockInput{Location: locationJSON(1, 1)})
	if err != nil {
		t.Fatal(err)
	}

	// clock-out before the existing clock-in
	early := t0.Add(-time.Minute)
	_, err = svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{ClockOutTime: &early})
	wantKind(t, err, KindValidation)

	// moving clock-in past an existing clock-out is checked against the merged values
	clock.Advance(4 * time.Hour)
	if _, err := svc.ClockOut(ctx, 3, tl.ID, ClockInput{Location: locationJSON(1, 1)}); err != nil {
		t.Fatal(err)
	}
	late := t0.Add(5 * time.Hour)
	_, err = svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{ClockInTime: &late})
	wantKind(t, err, KindValidation)

	bad := "done"
	_, err = svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{Status: &bad})
	wantKind(t, err, KindValidation)

	longNote := strings.Repeat("a", 1001)
	_, err = svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{AdminNote: &longNote})
	wantKind(t, err, KindValidation)

	approved := "approved"
	note := "ok"
	in := t0.Add(30 * time.Minute)
	got, err := svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{Status: &approved, AdminNote: &note, ClockInTime: &in})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != model.StatusApproved || *got.AdminNote != "ok" || got.Duration() != "3h 30m" {
		t.Fatalf("updated = %+v (%s)", got, got.Duration())
	}

	_, err = svc.AdminUpdate(ctx, 1, 999, AdminUpdateInput{Status: &approved})
	wantKind(t, err, KindNotFound)
}

func TestAdminForceClockOut(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	svc := newTimeLogService(store, clock, &testutil.Events{})
	ctx := context.Background()

	tl, err := svc.ClockIn(ctx, 3, ClockInput{Location: locationJSON(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(90 * time.Minute)
	got, err := svc.AdminUpdate(ctx, 1, tl.ID, AdminUpdateInput{ForceClockOut: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Open() || got.Duration() != "1h 30m" {
		t.Fatalf("forced = %+v", got)
	}
	if active, _ := svc.Active(ctx, 3); active != nil {
		t.Fatal("worker still clocked in")
	}
	// a fresh clock-in is allowed afterwards
	if _, err := svc.ClockIn(ctx, 3, ClockInput{Location: locationJSON(1, 1)}); err != nil {
		t.Fatalf("clock in after force: %v", err)
	}
}

func TestAdminListAndDelete(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	svc := newTimeLogService(store, clock, &testutil.Events{})
	ctx := context.Background()

	a, _ := svc.ClockIn(ctx, 1, ClockInput{Location: locationJSON(1, 1)})
	clock.Advance(time.Hour)
	b, _ := svc.ClockIn(ctx, 2, ClockInput{Location: locationJSON(1, 1)})

	all, err := svc.AdminList(ctx, repository.TimeLogFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("list order = %+v", all)
	}
	uid := uint64(1)
	mine, _ := svc.AdminList(ctx, repository.TimeLogFilter{UserID: &uid})
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("filtered = %+v", mine)
	}
	bad := model.TimeLogStatus("x")
	_, err = svc.AdminList(ctx, repository.TimeLogFilter{Status: &bad})
	wantKind(t, err, KindValidation)

	if err := svc.AdminDelete(ctx, 9, a.ID); err != nil {
		t.Fatal(err)
	}
	wantKind(t, svc.AdminDelete(ctx, 9, a.ID), KindNotFound)
}
