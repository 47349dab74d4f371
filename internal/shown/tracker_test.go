package shown

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "memebot/pkg/logx"
)

func TestMarkAndSeenRecently(t *testing.T) {
	t.Parallel()
	tr := New(filepath.Join(t.TempDir(), "shown.json"), time.Hour, logx.Nop())

	if tr.SeenRecently("http://img/a.png") {
		t.Fatal("unseen url reported as seen")
	}
	tr.Mark("http://img/a.png")
	if !tr.SeenRecently("http://img/a.png") {
		t.Fatal("marked url not reported as seen")
	}
	if tr.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tr.Len())
	}
}

func TestLazyPruneOnLookup(t *testing.T) {
	t.Parallel()
	tr := New(filepath.Join(t.TempDir(), "shown.json"), time.Hour, logx.Nop())

	now := time.Now()
	tr.now = func() time.Time { return now }
	tr.Mark("http://img/a.png")

	now = now.Add(2 * time.Hour)
	if tr.SeenRecently("http://img/a.png") {
		t.Fatal("entry older than the window still reported as seen")
	}
	if tr.Len() != 0 {
		t.Fatalf("Len = %d, want stale entry deleted", tr.Len())
	}
}

func TestPersistRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shown.json")

	tr := New(path, time.Hour, logx.Nop())
	tr.Mark("http://img/a.png")
	tr.Mark("http://img/b.png")

	tr2 := New(path, time.Hour, logx.Nop())
	if !tr2.SeenRecently("http://img/a.png") || !tr2.SeenRecently("http://img/b.png") {
		t.Fatal("marks lost across reload")
	}

	// Wire shape is a flat url -> epoch map.
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("shown file is not url->epoch: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("persisted %d entries, want 2", len(m))
	}
}

func TestLoadDropsEntriesOutsideWindow(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shown.json")
	old := time.Now().Add(-48 * time.Hour).Unix()
	fresh := time.Now().Unix()
	b, _ := json.Marshal(map[string]int64{"http://old": old, "http://fresh": fresh})
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	tr := New(path, 24*time.Hour, logx.Nop())
	if tr.Len() != 1 {
		t.Fatalf("Len = %d, want only the fresh entry", tr.Len())
	}
	if tr.SeenRecently("http://old") {
		t.Fatal("expired entry survived load")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shown.json")
	tr := New(path, time.Hour, logx.Nop())
	tr.Mark("http://img/a.png")
	tr.Clear()

	if tr.Len() != 0 || tr.SeenRecently("http://img/a.png") {
		t.Fatal("Clear left entries behind")
	}
	// Clear persists too.
	tr2 := New(path, time.Hour, logx.Nop())
	if tr2.Len() != 0 {
		t.Fatalf("reloaded Len = %d, want 0", tr2.Len())
	}
}

func TestMalformedFileStartsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shown.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := New(path, time.Hour, logx.Nop())
	if tr.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tr.Len())
	}
}
