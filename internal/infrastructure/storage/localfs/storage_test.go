package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStageWritesFileAndReportsSize(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	file, err := s.Stage(context.Background(), "june paper.pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if file.Name != "june paper.pdf" {
		t.Fatalf("original name must be preserved, got %q", file.Name)
	}
	if file.Size != 5 {
		t.Fatalf("expected size 5, got %d", file.Size)
	}
	if strings.Contains(filepath.Base(file.Path), " ") {
		t.Fatalf("staged path must be sanitized, got %q", file.Path)
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestStageAvoidsCollisions(t *testing.T) {
	s, _ := New(t.TempDir())
	a, _ := s.Stage(context.Background(), "same.pdf", strings.NewReader("a"))
	b, _ := s.Stage(context.Background(), "same.pdf", strings.NewReader("b"))
	if a.Path == b.Path {
		t.Fatal("staging the same filename twice must not collide")
	}
}

func TestStageStripsDirectoryComponents(t *testing.T) {
	s, _ := New(t.TempDir())
	file, err := s.Stage(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if strings.Contains(filepath.Base(file.Path), "..") {
		t.Fatalf("path traversal must be neutralized, got %q", file.Path)
	}
	if filepath.Dir(file.Path) != filepath.Clean(filepath.Dir(file.Path)) {
		t.Fatalf("staged file escaped the base dir: %q", file.Path)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s, _ := New(t.TempDir())
	file, _ := s.Stage(context.Background(), "gone.txt", strings.NewReader("x"))

	if err := s.Remove(context.Background(), file); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(context.Background(), file); err != nil {
		t.Fatalf("second remove must not fail: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"june paper.pdf": "june_paper.pdf",
		"résumé.pdf":     "r_sum_.pdf",
		"":               "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
