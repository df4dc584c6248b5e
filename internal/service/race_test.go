package service

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/testutil"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// The tests below let the service's pre-check read pass and then commit a
// competing write just before the service's own write.

func TestClockInLosesToConcurrentClockIn(t *testing.T) {
	store := testutil.NewStore()
	events := &testutil.Events{}
	svc := newTimeLogService(store, testutil.NewClock(t0), events)
	ctx := context.Background()

	var winner model.TimeLog
	store.Before(testutil.OpCreateTimeLog, func() {
		var err error
		winner, err = svc.ClockIn(ctx, 4, ClockInput{Location: locationJSON(1, 1)})
		if err != nil {
			t.Errorf("competing clock in: %v", err)
		}
	})

	_, err := svc.ClockIn(ctx, 4, ClockInput{Location: locationJSON(2, 2)})
	wantKind(t, err, KindConflict)
	if Message(err) != msgAlreadyClockedIn {
		t.Fatalf("message = %q", Message(err))
	}
	if n := store.TimeLogCount(); n != 1 {
		t.Fatalf("log count = %d", n)
	}
	active, _ := svc.Active(ctx, 4)
	if active == nil || active.ID != winner.ID || active.ClockInLocation.Latitude != 1 {
		t.Fatalf("active = %+v", active)
	}
	if got := events.Types(); len(got) != 1 {
		t.Fatalf("events = %v", got)
	}
}

func TestClockOutLosesToConcurrentClockOut(t *testing.T) {
	store := testutil.NewStore()
	clock := testutil.NewClock(t0)
	svc := newTimeLogService(store, clock, &testutil.Events{})
	ctx := context.Background()

	tl, err := svc.ClockIn(ctx, 4, ClockInput{Location: locationJSON(1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)
	store.Before(testutil.OpClockOut, func() {
		if _, err := svc.ClockOut(ctx, 4, tl.ID, ClockInput{Location: locationJSON(1, 1), Note: "first"}); err != nil {
			t.Errorf("competing clock out: %v", err)
		}
	})
	clock.Advance(time.Minute)

	_, err = svc.ClockOut(ctx, 4, tl.ID, ClockInput{Location: locationJSON(3, 3), Note: "second"})
	wantKind(t, err, KindConflict)
	if Message(err) != msgAlreadyClockedOut {
		t.Fatalf("message = %q", Message(err))
	}

	got, err := store.TimeLogs().GetByID(ctx, tl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClockOutLocation == nil || got.ClockOutLocation.Latitude != 1 || *got.WorkerNote != "first" {
		t.Fatalf("stored log = %+v", got)
	}
}

func TestRegisterLosesInvitationToConcurrentSignup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.invs.Create(ctx, 1, "worker", nil)
	if err != nil {
		t.Fatal(err)
	}
	token := created.Invitation.Token

	f.store.Before(testutil.OpCreateWithInvitation, func() {
		if _, err := f.auth.Register(ctx, RegisterInput{
			Name: "First", Email: "first@example.com", Password: "Passw0rd", Phone: "1", InviteToken: token,
		}); err != nil {
			t.Errorf("competing signup: %v", err)
		}
	})

	_, err = f.auth.Register(ctx, RegisterInput{
		Name: "Second", Email: "second@example.com", Password: "Passw0rd", Phone: "2", InviteToken: token,
	})
	wantKind(t, err, KindConflict)
	if Message(err) != "invitation is no longer valid" {
		t.Fatalf("message = %q", Message(err))
	}
	if n := f.store.UserCount(); n != 1 {
		t.Fatalf("user count = %d", n)
	}
	if _, err := f.store.Users().GetByEmail(ctx, "second@example.com"); err == nil {
		t.Fatal("losing signup was stored")
	}
	inv, _ := f.store.Invitations().GetByToken(ctx, token)
	first, _ := f.store.Users().GetByEmail(ctx, "first@example.com")
	if inv.UsedBy == nil || *inv.UsedBy != first.ID {
		t.Fatalf("invitation used by %v, want %d", inv.UsedBy, first.ID)
	}
}

func TestUpdateProfileOfDeletedUser(t *testing.T) {
	f := newFixture()
	svc := newUserService(f, nil)
	ctx := context.Background()
	u := f.seedUser(t, "gone@example.com", "Passw0rd", model.RoleClient)

	f.store.Before(testutil.OpUpdateProfile, func() {
		if err := f.store.Users().Delete(ctx, u.ID); err != nil {
			t.Errorf("delete: %v", err)
		}
	})
	_, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: strp("New"), Password: strp("N3wPassword")})
	wantKind(t, err, KindNotFound)
}

func TestUpdateProfileWritesPasswordWithProfile(t *testing.T) {
	f := newFixture()
	svc := newUserService(f, nil)
	ctx := context.Background()
	u := f.seedUser(t, "p@example.com", "Passw0rd", model.RoleClient)

	// a rejected profile leaves the old password in place
	_, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: strp("  "), Password: strp("N3wPassword")})
	wantKind(t, err, KindValidation)
	stored, _ := f.store.Users().GetByID(ctx, u.ID)
	if !utils.VerifyPassword(stored.PasswordHash, "Passw0rd") {
		t.Fatal("password changed by a rejected update")
	}

	got, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: strp("Pat"), Password: strp("N3wPassword")})
	if err != nil {
		t.Fatal(err)
	}
	stored, _ = f.store.Users().GetByID(ctx, u.ID)
	if stored.Name != "Pat" || stored.PasswordHash != got.PasswordHash || !utils.VerifyPassword(stored.PasswordHash, "N3wPassword") {
		t.Fatalf("stored = %+v", stored)
	}
}
