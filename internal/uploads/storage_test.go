package uploads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coach-annotator/internal/platform/logger"
)

func newTestStorage(t *testing.T, maxBytes int64) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "uploads"), "/uploads/", maxBytes)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return s
}

func TestStorage_Save(t *testing.T) {
	s := newTestStorage(t, 1024)

	f, err := s.Save(strings.NewReader("fake video bytes"), "Run One.MOV")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(f.FileName, ".mov") || f.FileName != f.ID+".mov" {
		t.Errorf("unexpected file name %q for id %q", f.FileName, f.ID)
	}
	if f.URL != "/uploads/"+f.FileName {
		t.Errorf("unexpected url %q", f.URL)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil || string(b) != "fake video bytes" {
		t.Errorf("file content: %q err=%v", b, err)
	}
}

func TestStorage_Save_rejects(t *testing.T) {
	s := newTestStorage(t, 8)

	t.Run("unsupported_extension", func(t *testing.T) {
		if _, err := s.Save(strings.NewReader("x"), "notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("too_large", func(t *testing.T) {
		_, err := s.Save(strings.NewReader("0123456789"), "big.mp4")
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("expected ErrTooLarge, got %v", err)
		}
		entries, _ := os.ReadDir(s.Dir())
		if len(entries) != 0 {
			t.Errorf("oversized upload should be removed, found %d entries", len(entries))
		}
	})
}

func TestStorage_ThumbnailPath(t *testing.T) {
	s := newTestStorage(t, 0)
	p, url := s.ThumbnailPath("abc", 3)
	if p != filepath.Join(s.Dir(), "thumbs", "abc", "3.jpg") {
		t.Errorf("unexpected path %q", p)
	}
	if url != "/uploads/thumbs/abc/3.jpg" {
		t.Errorf("unexpected url %q", url)
	}
	if s.MaxBytes() != DefaultMaxBytes {
		t.Errorf("expected default max bytes, got %d", s.MaxBytes())
	}
}

func TestJanitor_Sweep(t *testing.T) {
	s := newTestStorage(t, 0)
	old, _ := s.Save(strings.NewReader("old"), "old.mp4")
	fresh, _ := s.Save(strings.NewReader("fresh"), "fresh.webm")

	thumb, _ := s.ThumbnailPath(old.ID, 1)
	os.MkdirAll(filepath.Dir(thumb), 0o755)
	os.WriteFile(thumb, []byte("jpg"), 0o644)

	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old.Path, past, past); err != nil {
		t.Fatal(err)
	}

	var expired []string
	j := NewJanitor(s, time.Hour, func(ctx context.Context, id string) { expired = append(expired, id) }, logger.Discard())

	n, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 || len(expired) != 1 || expired[0] != old.ID {
		t.Errorf("expected only %s expired, got n=%d ids=%v", old.ID, n, expired)
	}
	if _, err := os.Stat(old.Path); !os.IsNotExist(err) {
		t.Error("expired upload should be deleted")
	}
	if _, err := os.Stat(filepath.Dir(thumb)); !os.IsNotExist(err) {
		t.Error("thumbnails of expired upload should be deleted")
	}
	if _, err := os.Stat(fresh.Path); err != nil {
		t.Errorf("fresh upload should remain: %v", err)
	}
}

func TestJanitor_Start_invalid_spec(t *testing.T) {
	j := NewJanitor(newTestStorage(t, 0), time.Hour, nil, logger.Discard())
	if err := j.Start("not a cron spec"); err == nil {
		t.Error("expected invalid spec error")
	}
	if err := j.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-j.Stop().Done()
}
