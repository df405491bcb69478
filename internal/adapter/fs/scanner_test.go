package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFindsPDFs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "report.pdf"))
	touch(t, filepath.Join(root, "sub", "notes.pdf"))
	touch(t, filepath.Join(root, "readme.txt"))

	scanner := NewScanner([]string{"**/*.pdf"}, nil)
	paths, err := scanner.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(paths) != 2 {
		t.Fatalf("expected 2 pdfs, got %d: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "report.pdf" && filepath.Base(paths[1]) != "report.pdf" {
		t.Errorf("expected report.pdf in results, got %v", paths)
	}
}

func TestScanExcludesHiddenDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "keep.pdf"))
	touch(t, filepath.Join(root, ".cache", "skip.pdf"))

	scanner := NewScanner([]string{"**/*.pdf"}, []string{"**/.*/**", ".*/**"})
	paths, err := scanner.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(paths) != 1 {
		t.Fatalf("expected 1 pdf, got %d: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "keep.pdf" {
		t.Errorf("expected keep.pdf, got %s", paths[0])
	}
}

func TestScanDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.pdf"))
	touch(t, filepath.Join(root, "c.pdf"))

	scanner := NewScanner(nil, nil)
	paths, err := scanner.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(paths) != 3 {
		t.Fatalf("expected 3 pdfs, got %d", len(paths))
	}
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if filepath.Base(paths[i]) != want {
			t.Errorf("expected %s at position %d, got %s", want, i, paths[i])
		}
	}
}
