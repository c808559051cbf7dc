package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikshitha/meeting-recorder/logger"
)

func openTestDB(t *testing.T) *Database {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "data", "meetings.db"), logger.Discard())
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &SessionRecord{
		ID:          "session-1",
		Provider:    "meet",
		MeetingURL:  "https://meet.google.com/abc-defg-hij",
		DisplayName: "Meeting Bot",
		Joined:      true,
		JoinClicked: true,
		StartedAt:   started,
	}
	if err := db.SaveSession(rec); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := db.GetSession("session-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("Session should exist")
	}
	if got.Provider != "meet" || !got.Joined || !got.JoinClicked {
		t.Errorf("Unexpected session %+v", got)
	}
	if got.EndedAt != nil {
		t.Error("Session should not have ended yet")
	}

	ended := started.Add(time.Hour)
	if err := db.FinishSession("session-1", ended, errors.New("leave failed")); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}

	got, _ = db.GetSession("session-1")
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("Expected end time %s, got %v", ended, got.EndedAt)
	}
	if got.Error != "leave failed" {
		t.Errorf("Expected error to be stored, got %q", got.Error)
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetSession("nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("Missing session should return nil")
	}

	if err := db.FinishSession("nope", time.Now(), nil); err == nil {
		t.Error("FinishSession should fail for an unknown session")
	}
}

func TestSaveSessionUpserts(t *testing.T) {
	db := openTestDB(t)

	rec := &SessionRecord{ID: "s", Provider: "zoom", MeetingURL: "https://zoom.us/j/1", StartedAt: time.Now()}
	if err := db.SaveSession(rec); err != nil {
		t.Fatal(err)
	}

	rec.Joined = true
	if err := db.SaveSession(rec); err != nil {
		t.Fatalf("Second SaveSession failed: %v", err)
	}

	sessions, err := db.GetRecentSessions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || !sessions[0].Joined {
		t.Errorf("Expected one joined session, got %+v", sessions)
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := &SessionRecord{ID: id, Provider: "meet", MeetingURL: "u", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.SaveSession(rec); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := db.GetRecentSessions(2)
	if err != nil {
		t.Fatalf("GetRecentSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Errorf("Expected newest first, got %s, %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestRecordings(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveSession(&SessionRecord{ID: "s1", Provider: "meet", MeetingURL: "u", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &RecordingRecord{
		SessionID: "s1",
		Path:      "recordings/meeting_2024-01-01T12-00-00.webm",
		SizeBytes: 4096,
		StartedAt: start,
		StoppedAt: start.Add(time.Minute),
	}
	id, err := db.SaveRecording(rec)
	if err != nil {
		t.Fatalf("SaveRecording failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected a row id")
	}

	recs, err := db.GetRecordings("s1")
	if err != nil {
		t.Fatalf("GetRecordings failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 recording, got %d", len(recs))
	}
	if recs[0].Path != rec.Path || recs[0].SizeBytes != 4096 {
		t.Errorf("Unexpected recording %+v", recs[0])
	}

	other, err := db.GetRecordings("s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Error("Other sessions should have no recordings")
	}
}
