package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DefaultName))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		StartedAt: started, Source: ".tools/source.html", Username: "ladyvee", DisplayName: "Lady Vee",
		Friends: 8, Albums: 2, Groups: 1, Comments: 3, SocialLinks: 4, Badges: 5, Images: 6, CustomInlined: true,
	}
	imgs := []Image{
		{URL: "https://cdn.example.com/a.png", LocalPath: "./images/abc.png", Status: "downloaded"},
		{URL: "https://cdn.example.com/b.png", Status: "failed", Error: "unexpected status: 404"},
	}
	id, err := s.RecordRun(ctx, run, imgs)
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if id == 0 {
		t.Fatal("RecordRun() returned 0 id")
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	run.ID = id
	if diff := cmp.Diff([]Run{run}, runs); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}

	got, err := s.RunImages(ctx, id)
	if err != nil {
		t.Fatalf("RunImages() error = %v", err)
	}
	if diff := cmp.Diff(imgs, got); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"one", "two", "three"} {
		if _, err := s.RecordRun(ctx, Run{Username: name}, nil); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", name, err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].Username != "three" || runs[1].Username != "two" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	all, err := s.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListRuns(0) = %d, %v", len(all), err)
	}
	if all[0].StartedAt.IsZero() {
		t.Error("zero StartedAt should default to now")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultName)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordRun(context.Background(), Run{Username: "x"}, nil); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	runs, err := s2.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d %v", len(runs), err)
	}
	if s2.Path() != path {
		t.Errorf("Path() = %q", s2.Path())
	}
}
