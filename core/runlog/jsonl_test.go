package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	now := time.Now()
	_ = store.Append(ctx, Record{RunID: "1", ProjectID: "p1", Timestamp: now})
	_ = store.Append(ctx, Record{RunID: "2", ProjectID: "p2", Timestamp: now, Error: "save failed"})

	// garbage lines are skipped
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("not json\n")
	_ = f.Close()

	all, err := store.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	failed, _ := store.Query(ctx, Query{FailedOnly: true})
	if len(failed) != 1 || failed[0].RunID != "2" {
		t.Fatalf("unexpected failed records %#v", failed)
	}
	p1, _ := store.Query(ctx, Query{ProjectID: "p1"})
	if len(p1) != 1 || p1[0].RunID != "1" {
		t.Fatalf("unexpected project records %#v", p1)
	}
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	rec := Record{Timestamp: time.Now(), ProjectID: "p1"}
	for i := 0; i < 100; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := filepath.Glob(filepath.Join(dir, "runs*"))
	if len(files) == 0 {
		t.Fatalf("expected log files")
	}
	out, err := store.Query(context.Background(), Query{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 100 {
		t.Fatalf("expected 100 records, got %d", len(out))
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		opts Options
		want string
	}{
		{Options{Backend: "none"}, "runlog.NopStore"},
		{Options{Backend: "jsonl", Path: filepath.Join(dir, "a.jsonl")}, "*runlog.JSONLStore"},
		{Options{Backend: "jsonl", Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 5}, "*runlog.RotatingJSONLStore"},
		{Options{Backend: "sqlite", Path: "file:open.db?mode=memory&cache=shared"}, "*runlog.SQLiteStore"},
	}
	for _, c := range cases {
		s, err := Open(c.opts)
		if err != nil {
			t.Fatalf("open %s: %v", c.opts.Backend, err)
		}
		if got := typeName(s); got != c.want {
			t.Errorf("backend %s: got %s want %s", c.opts.Backend, got, c.want)
		}
		_ = s.Close()
	}
	if _, err := Open(Options{Backend: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
