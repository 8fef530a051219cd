package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wjixiang/aikb/internal/partition"
)

// PartFile describes one produced part on disk.
type PartFile struct {
	Range    partition.Range
	FileName string
	Path     string
}

// PageCount returns the actual page count of the PDF at path. The count
// declared on an inbound request is advisory; this is authoritative.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf: count pages of %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// ExtractRange writes pages [startPage, endPage] of in to out as a
// standalone PDF. The write is atomic: pdfcpu writes to a temp file next to
// out, which is then renamed into place.
func ExtractRange(in, out string, startPage, endPage int) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".part-*.pdf")
	if err != nil {
		return fmt.Errorf("pdf: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	conf := model.NewDefaultConfiguration()
	pages := []string{fmt.Sprintf("%d-%d", startPage, endPage)}
	if err := api.TrimFile(in, tmpPath, pages, conf); err != nil {
		return fmt.Errorf("pdf: extract pages %d-%d: %w", startPage, endPage, err)
	}

	if err := os.Rename(tmpPath, out); err != nil {
		return fmt.Errorf("pdf: finalize %s: %w", filepath.Base(out), err)
	}
	return nil
}

// SplitFile produces one part file in dir for each planned range, named
// part_001.pdf, part_002.pdf, and so on in index order.
func SplitFile(in, dir string, plan []partition.Range) ([]PartFile, error) {
	parts := make([]PartFile, 0, len(plan))

	for _, r := range plan {
		name := fmt.Sprintf("part_%03d.pdf", r.Index+1)
		path := filepath.Join(dir, name)
		if err := ExtractRange(in, path, r.StartPage, r.EndPage); err != nil {
			return nil, fmt.Errorf("pdf: part %d: %w", r.Index, err)
		}
		parts = append(parts, PartFile{Range: r, FileName: name, Path: path})
	}

	return parts, nil
}
