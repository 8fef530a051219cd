// Package pdf performs the physical page-range extraction behind the
// partition planner, using pdfcpu.
//
// The planner decides which pages go where; this package reads the
// downloaded document, reports its actual page count, and writes one part
// file per planned range. Part files are written atomically (temp file plus
// rename) so a crashed split never leaves a truncated part behind.
package pdf
