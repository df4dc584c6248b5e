package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/crowlee-bookings/internal/model"
)

func TestInvitationCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.invs.Create(ctx, 1, "worker", nil)
	if err != nil {
		t.Fatal(err)
	}
	inv := created.Invitation
	if inv.Role != model.RoleWorker || !inv.ExpiresAt.Equal(t0.Add(48*time.Hour)) {
		t.Fatalf("invitation = %+v", inv)
	}
	if len(inv.Token) != 64 {
		t.Fatalf("token = %q", inv.Token)
	}
	if want := "https://book.example.com/register?invite=" + inv.Token; created.URL != want {
		t.Fatalf("url = %q", created.URL)
	}
	if inv.CreatedBy == nil || *inv.CreatedBy != 1 {
		t.Fatalf("created_by = %v", inv.CreatedBy)
	}

	for _, h := range []int{0, 169, -3} {
		h := h
		_, err := f.invs.Create(ctx, 1, "client", &h)
		wantKind(t, err, KindValidation)
	}
	for _, h := range []int{1, 168} {
		h := h
		if _, err := f.invs.Create(ctx, 1, "client", &h); err != nil {
			t.Fatalf("hours %d rejected: %v", h, err)
		}
	}
	_, err = f.invs.Create(ctx, 1, "admin", nil)
	wantKind(t, err, KindValidation)
	_, err = f.invs.Create(ctx, 1, "owner", nil)
	wantKind(t, err, KindValidation)
}

func TestInvitationValidate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	hours := 2
	created, err := f.invs.Create(ctx, 1, "client", &hours)
	if err != nil {
		t.Fatal(err)
	}
	token := created.Invitation.Token

	_, err = f.invs.Validate(ctx, "")
	wantKind(t, err, KindValidation)
	_, err = f.invs.Validate(ctx, "unknown")
	wantKind(t, err, KindNotFound)

	inv, err := f.invs.Validate(ctx, token)
	if err != nil || inv.Role != model.RoleClient {
		t.Fatalf("validate = %+v, %v", inv, err)
	}
	// validation does not consume
	if _, err := f.invs.Validate(ctx, token); err != nil {
		t.Fatalf("second validate: %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	_, err = f.invs.Validate(ctx, token)
	wantKind(t, err, KindValidation)
	if !strings.Contains(Message(err), "expired") {
		t.Fatalf("message = %q", Message(err))
	}
}

func TestInvitationValidateUsed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, _ := f.invs.Create(ctx, 1, "worker", nil)
	if _, err := f.auth.Register(ctx, RegisterInput{
		Name: "W", Email: "w@example.com", Password: "Passw0rd", Phone: "1", InviteToken: created.Invitation.Token,
	}); err != nil {
		t.Fatal(err)
	}
	_, err := f.invs.Validate(ctx, created.Invitation.Token)
	wantKind(t, err, KindValidation)
	if Message(err) != "invitation has already been used" {
		t.Fatalf("message = %q", Message(err))
	}
}

func TestInvitationListAndRevoke(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, _ := f.invs.Create(ctx, 1, "worker", nil)
	second, _ := f.invs.Create(ctx, 1, "client", nil)

	list, err := f.invs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.Invitation.ID {
		t.Fatalf("list = %+v", list)
	}

	if err := f.invs.Revoke(ctx, 1, first.Invitation.ID); err != nil {
		t.Fatal(err)
	}
	wantKind(t, f.invs.Revoke(ctx, 1, first.Invitation.ID), KindNotFound)
	_, err = f.invs.Validate(ctx, first.Invitation.Token)
	wantKind(t, err, KindNotFound)
}
