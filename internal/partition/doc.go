// Package partition computes page ranges for splitting a document into
// bounded-size parts.
//
// The planner is pure: given a page count and a part size it returns the
// list of 1-based inclusive page ranges covering the document. The same
// function is used both to plan the physical split and to verify produced
// output in tests.
//
//	plan, err := partition.Plan(15, 5)
//	// [{0 1 5} {1 6 10} {2 11 15}]
package partition
