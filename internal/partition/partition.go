package partition

import (
	"errors"
	"fmt"
)

// Argument errors.
var (
	ErrInvalidPageCount = errors.New("partition: page count must be positive")
	ErrInvalidPartSize  = errors.New("partition: part size must be positive")
)

// Range is one planned part: a contiguous, 1-based inclusive page range.
type Range struct {
	Index     int // 0-based part index
	StartPage int
	EndPage   int
}

// Pages returns the number of pages covered by the range.
func (r Range) Pages() int {
	return r.EndPage - r.StartPage + 1
}

// Plan computes the part ranges for a document of pageCount pages with at
// most partSize pages per part. Part i covers pages
// [i*partSize+1, min((i+1)*partSize, pageCount)].
func Plan(pageCount, partSize int) ([]Range, error) {
	if pageCount <= 0 {
		return nil, ErrInvalidPageCount
	}
	if partSize <= 0 {
		return nil, ErrInvalidPartSize
	}

	totalParts := (pageCount + partSize - 1) / partSize
	plan := make([]Range, 0, totalParts)

	for i := 0; i < totalParts; i++ {
		end := (i + 1) * partSize
		if end > pageCount {
			end = pageCount
		}
		plan = append(plan, Range{
			Index:     i,
			StartPage: i*partSize + 1,
			EndPage:   end,
		})
	}

	return plan, nil
}

// Verify checks that plan fully and contiguously covers [1, pageCount] with
// no overlap and in index order.
func Verify(plan []Range, pageCount int) error {
	if len(plan) == 0 {
		return errors.New("partition: empty plan")
	}

	next := 1
	for i, r := range plan {
		if r.Index != i {
			return fmt.Errorf("partition: part %d has index %d", i, r.Index)
		}
		if r.StartPage != next {
			return fmt.Errorf("partition: part %d starts at page %d, want %d", i, r.StartPage, next)
		}
		if r.EndPage < r.StartPage {
			return fmt.Errorf("partition: part %d has empty range %d-%d", i, r.StartPage, r.EndPage)
		}
		next = r.EndPage + 1
	}

	if next != pageCount+1 {
		return fmt.Errorf("partition: plan covers [1, %d], want [1, %d]", next-1, pageCount)
	}
	return nil
}

// ClampPartSize bounds n to [min, max]. A non-positive n falls back to min.
func ClampPartSize(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
