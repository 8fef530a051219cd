package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wjixiang/aikb/internal/partition"
	"github.com/wjixiang/aikb/internal/testutils"
)

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	testutils.WritePDF(t, path, 7)

	n, err := PageCount(path)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 7 {
		t.Errorf("PageCount = %d, want 7", n)
	}
}

func TestPageCountMissingFile(t *testing.T) {
	if _, err := PageCount(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSplitFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.pdf")
	testutils.WritePDF(t, in, 10)

	plan, err := partition.Plan(10, 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	outDir := filepath.Join(dir, "parts")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	parts, err := SplitFile(in, outDir, plan)
	if err != nil {
		t.Fatalf("SplitFile: %v", err)
	}
	if len(parts) != 4 {
		t.Fatalf("got %d parts, want 4", len(parts))
	}

	for i, p := range parts {
		if p.Range.Index != i {
			t.Errorf("part %d has range index %d", i, p.Range.Index)
		}
		n, err := PageCount(p.Path)
		if err != nil {
			t.Fatalf("PageCount(%s): %v", p.FileName, err)
		}
		if n != p.Range.Pages() {
			t.Errorf("part %d has %d pages, want %d", i, n, p.Range.Pages())
		}
	}

	if parts[0].FileName != "part_001.pdf" {
		t.Errorf("part 0 file name = %q", parts[0].FileName)
	}
	if parts[3].FileName != "part_004.pdf" {
		t.Errorf("part 3 file name = %q", parts[3].FileName)
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("output dir holds %d entries, want 4", len(entries))
	}
}

func TestSplitFileSinglePage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.pdf")
	testutils.WritePDF(t, in, 1)

	plan, err := partition.Plan(1, 25)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	parts, err := SplitFile(in, dir, plan)
	if err != nil {
		t.Fatalf("SplitFile: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	n, err := PageCount(parts[0].Path)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 1 {
		t.Errorf("part has %d pages, want 1", n)
	}
}
