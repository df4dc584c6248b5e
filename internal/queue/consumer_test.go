package queue

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFormatActivity(t *testing.T) {
	got := FormatActivity(ActivityEvent{
		Type:       EventTimeLogClockedOut,
		OccurredAt: "2025-01-01T17:30:00Z",
		UserID:     3,
		TimeLogID:  11,
		Duration:   "8h 30m",
	})
	want := `[2025-01-01T17:30:00Z] timelog.clocked_out | user_id=3 | time_log_id=11 | duration="8h 30m"` + "\n"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestConsumerHandleAppends(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := &ActivityConsumer{LogDir: filepath.Join(dir, "logs"), Log: log}

	for _, ev := range []ActivityEvent{
		{Type: EventUserRegistered, OccurredAt: "t1", UserID: 1, Role: "worker"},
		{Type: EventInvitationCreated, OccurredAt: "t2", ActorID: 9, InvitationID: 4},
	} {
		body, _ := json.Marshal(ev)
		if err := c.handle(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "activity.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], "invitation_id=4") {
		t.Fatalf("second line = %q", lines[1])
	}

	if err := c.handle([]byte("{not json")); err == nil {
		t.Fatal("malformed body accepted")
	}
	if err := c.handle([]byte(`{"user_id":1}`)); err == nil {
		t.Fatal("untyped event accepted")
	}
}
