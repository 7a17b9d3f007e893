package maintenance_test

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/churrosoft/deck8-hub-go/internal/maintenance"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// archiveNames lists the regular files inside a backup.
func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, hdr.Name)
		}
	}
	sort.Strings(names)
	return names
}

func TestRunBackupNow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "state.json"), `{"active_slot":"A"}`)
	writeFile(t, filepath.Join(dir, "profiles", "work.json"), `{}`)
	writeFile(t, filepath.Join(dir, "sounds", "abc.wav"), "RIFF")
	writeFile(t, filepath.Join(dir, ".lock"), "")

	flushed := 0
	svc := maintenance.New(maintenance.Options{
		DataDir: dir,
		Flush:   func() error { flushed++; return nil },
	})
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) })

	name, err := svc.RunBackupNow()
	if err != nil {
		t.Fatalf("RunBackupNow: %v", err)
	}
	if name != "deck8-data-2026-03-04.tar.gz" {
		t.Errorf("name = %q", name)
	}
	if flushed != 1 {
		t.Errorf("flush called %d times, want 1", flushed)
	}

	got := archiveNames(t, filepath.Join(svc.Dir(), name))
	want := []string{"profiles/work.json", "sounds/abc.wav", "state.json"}
	if len(got) != len(want) {
		t.Fatalf("archive = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("archive[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// A second backup must not contain the first.
	if _, err := svc.RunBackupNow(); err != nil {
		t.Fatal(err)
	}
	for _, n := range archiveNames(t, filepath.Join(svc.Dir(), name)) {
		if filepath.Dir(n) == maintenance.BackupDirName {
			t.Errorf("archive contains %q", n)
		}
	}
}

func TestListBackups(t *testing.T) {
	dir := t.TempDir()
	svc := maintenance.New(maintenance.Options{DataDir: dir})

	files, err := svc.ListBackups()
	if err != nil || len(files) != 0 {
		t.Fatalf("ListBackups on empty = %v, %v", files, err)
	}

	for _, n := range []string{
		"deck8-data-2026-06-15.tar.gz",
		"deck8-data-2026-01-01.tar.gz",
		"notes.txt",
	} {
		writeFile(t, filepath.Join(svc.Dir(), n), "x")
	}
	files, err = svc.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "deck8-data-2026-01-01.tar.gz" {
		t.Errorf("ListBackups = %q", files)
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := maintenance.New(maintenance.Options{DataDir: dir, Retention: 7 * 24 * time.Hour})
	svc.SetClock(func() time.Time { return now })

	old := filepath.Join(svc.Dir(), "deck8-data-2026-01-01.tar.gz")
	other := filepath.Join(svc.Dir(), "keep.txt")
	writeFile(t, old, "x")
	writeFile(t, other, "x")
	past := now.Add(-30 * 24 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.RunBackupNow(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired backup should have been pruned")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-backup file should be kept")
	}
	files, _ := svc.ListBackups()
	if len(files) != 1 || files[0] != "deck8-data-2026-03-04.tar.gz" {
		t.Errorf("ListBackups = %q", files)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	svc := maintenance.New(maintenance.Options{DataDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
