package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wjixiang/aikb/internal/partition"
	"github.com/wjixiang/aikb/internal/pdf"
)

// runSplit partitions a local PDF into part files without talking to a
// broker or object storage. Useful for inspecting what the worker would
// produce for a given document.
func runSplit(args []string) int {
	fs := flag.NewFlagSet("split", flag.ExitOnError)

	in := fs.String("in", "", "Source PDF path (required)")
	out := fs.String("out", ".", "Output directory for part files")
	size := fs.Int("size", 25, "Maximum pages per part")
	dryRun := fs.Bool("dry-run", false, "Print the partition plan without writing files")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: splitworker split [options]

Split a local PDF into bounded parts. Writes part_001.pdf, part_002.pdf,
... into the output directory.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	pageCount, err := pdf.PageCount(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading PDF: %v\n", err)
		return ExitSplitError
	}

	plan, err := partition.Plan(pageCount, *size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	fmt.Printf("File: %s\n", *in)
	fmt.Printf("Pages: %d\n", pageCount)
	fmt.Printf("Parts: %d (up to %d pages each)\n", len(plan), *size)
	for _, r := range plan {
		fmt.Printf("  part %d: pages %d-%d\n", r.Index+1, r.StartPage, r.EndPage)
	}

	if *dryRun {
		return ExitSuccess
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		return ExitGeneralError
	}

	parts, err := pdf.SplitFile(*in, *out, plan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error splitting PDF: %v\n", err)
		return ExitSplitError
	}

	for _, p := range parts {
		fmt.Printf("Wrote %s\n", p.Path)
	}
	return ExitSuccess
}
