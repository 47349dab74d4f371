package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "memebot/pkg/logx"
)

func TestFileStoreAppendAndReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "selections.jsonl")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	entries := []SelectionEntry{
		{Trigger: "manual", Source: "memes", URL: "http://img/a.png", Score: 12, PoolSize: 50, Candidates: 80, TookMS: 900},
		{Trigger: "scheduled", Source: "lemmy:lemmy.world@memes", URL: "http://img/b.webp", NSFW: true},
	}
	for _, e := range entries {
		if err := st.AppendSelection(context.Background(), e); err != nil {
			t.Fatalf("AppendSelection error: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Reopen appends rather than truncating.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if err := st2.AppendSelection(context.Background(), SelectionEntry{Trigger: "manual", URL: "http://img/c.gif"}); err != nil {
		t.Fatalf("AppendSelection error: %v", err)
	}
	if err := st2.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []SelectionEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e SelectionEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3", len(got))
	}
	if got[0].Source != "memes" || got[0].Score != 12 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Trigger != "scheduled" || !got[1].NSFW {
		t.Fatalf("second = %+v", got[1])
	}
	if got[0].At.IsZero() {
		t.Fatal("At must be stamped when left zero")
	}
}

func TestOpenDrivers(t *testing.T) {
	t.Parallel()

	if st, err := Open(Config{Driver: "none"}, logx.Nop()); err != nil || st != nil {
		t.Fatalf("none driver: st=%v err=%v", st, err)
	}
	if st, err := Open(Config{}, logx.Nop()); err != nil || st != nil {
		t.Fatalf("empty driver: st=%v err=%v", st, err)
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without path must error")
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must error")
	}
}

func TestFileStoreClosedAppendFails(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "selections.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendSelection(context.Background(), SelectionEntry{At: time.Now()}); err == nil {
		t.Fatal("append after Close must error")
	}
}
