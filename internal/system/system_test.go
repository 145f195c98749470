package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestImagePoolReuse(t *testing.T) {
	p := NewImagePool()

	img := p.Get(12, 7)
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 7 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	p.Put(img)

	again := p.Get(12, 7)
	if again.Bounds() != img.Bounds() {
		t.Errorf("expected same size buffer, got %v", again.Bounds())
	}

	var nilPool *ImagePool
	if b := nilPool.Get(3, 3); b.Bounds().Dx() != 3 {
		t.Error("nil pool should still allocate")
	}
	nilPool.Put(img)
}

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.png", "b.jpg", "c.txt"}
	for i, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mod := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(p, mod, mod)
	}

	latest, err := FindLatestFile(dir, func(name string) bool {
		return !strings.HasSuffix(name, ".txt")
	})
	if err != nil {
		t.Fatalf("FindLatestFile failed: %v", err)
	}
	if filepath.Base(latest) != "b.jpg" {
		t.Errorf("expected b.jpg, got %s", latest)
	}

	if _, err := FindLatestFile(dir, func(string) bool { return false }); err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestDefaultWorkers(t *testing.T) {
	if n := DefaultWorkers(); n < 1 {
		t.Errorf("expected at least one worker, got %d", n)
	}
}
