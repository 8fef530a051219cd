// Package testutils provides shared test infrastructure: generated PDF
// fixtures, HTTP test servers, and container-backed environments for
// integration tests.
package testutils

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
)

// GeneratePDF returns a minimal but valid PDF document with the given
// number of empty pages. The output parses cleanly with pdfcpu, which is
// all the split pipeline needs from a fixture.
func GeneratePDF(t *testing.T, pages int) []byte {
	t.Helper()
	if pages <= 0 {
		t.Fatalf("GeneratePDF: pages must be positive, got %d", pages)
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, pages+3)

	write := func(s string) {
		buf.WriteString(s)
	}
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		write(body)
	}

	write("%PDF-1.4\n")

	// 1: catalog
	object("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	// 2: page tree
	kids := ""
	for i := 0; i < pages; i++ {
		if i > 0 {
			kids += " "
		}
		kids += fmt.Sprintf("%d 0 R", i+3)
	}
	object(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pages))

	// 3..n: pages
	for i := 0; i < pages; i++ {
		object(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n", i+3))
	}

	xrefStart := buf.Len()
	write(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	write("0000000000 65535 f \n")
	for _, off := range offsets {
		write(fmt.Sprintf("%010d 00000 n \n", off))
	}
	write(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefStart))

	return buf.Bytes()
}

// WritePDF writes a generated PDF fixture to path.
func WritePDF(t *testing.T, path string, pages int) {
	t.Helper()
	if err := os.WriteFile(path, GeneratePDF(t, pages), 0o644); err != nil {
		t.Fatalf("write pdf fixture: %v", err)
	}
}

// ServePDF starts an HTTP server that serves a generated PDF at /doc.pdf
// and 404s everything else.
func ServePDF(t *testing.T, pages int) *httptest.Server {
	t.Helper()
	data := GeneratePDF(t, pages)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/doc.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(data)
	}))
}

// FlakyServer serves data but fails the first failures requests with a 503.
// Used to exercise client retry behavior.
func FlakyServer(t *testing.T, data []byte, failures int) *httptest.Server {
	t.Helper()
	var calls atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(calls.Add(1)) <= failures {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(data)
	}))
}
