package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/bindrune/internal/bundler"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)

	start := time.Now().Add(-time.Minute)
	for i, src := range []string{"a.md", "b.md"} {
		res := &bundler.Result{
			Source:     src,
			BundleDir:  "/out/" + src + ".mdbundle",
			Links:      3,
			Resolved:   2,
			Failed:     1,
			StartedAt:  start.Add(time.Duration(i) * time.Second),
			FinishedAt: start.Add(time.Duration(i)*time.Second + time.Second),
		}
		if err := db.Record(res); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := db.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	// Most recent first.
	if runs[0].Source != "b.md" || runs[1].Source != "a.md" {
		t.Errorf("order = [%s %s], want [b.md a.md]", runs[0].Source, runs[1].Source)
	}
	if runs[0].Links != 3 || runs[0].Resolved != 2 || runs[0].Failed != 1 {
		t.Errorf("counts = %d/%d/%d", runs[0].Links, runs[0].Resolved, runs[0].Failed)
	}
}

func TestList_Limit(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 5; i++ {
		res := &bundler.Result{
			Source:     "n.md",
			BundleDir:  "/out/n.mdbundle",
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
		}
		if err := db.Record(res); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	runs, err := db.List(3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("len(runs) = %d, want 3", len(runs))
	}
}

func TestList_Empty(t *testing.T) {
	db := testDB(t)
	runs, err := db.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
