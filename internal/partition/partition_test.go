package partition

import (
	"errors"
	"testing"
)

func TestPlanExact(t *testing.T) {
	plan, err := Plan(10, 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []Range{
		{Index: 0, StartPage: 1, EndPage: 3},
		{Index: 1, StartPage: 4, EndPage: 6},
		{Index: 2, StartPage: 7, EndPage: 9},
		{Index: 3, StartPage: 10, EndPage: 10},
	}
	if len(plan) != len(want) {
		t.Fatalf("got %d parts, want %d", len(plan), len(want))
	}
	for i, r := range plan {
		if r != want[i] {
			t.Errorf("part %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestPlanSmallerThanPartSize(t *testing.T) {
	plan, err := Plan(2, 10)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("got %d parts, want 1", len(plan))
	}
	if plan[0].StartPage != 1 || plan[0].EndPage != 2 {
		t.Errorf("part 0 = %+v, want pages 1-2", plan[0])
	}
}

func TestPlanSinglePage(t *testing.T) {
	plan, err := Plan(1, 25)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) != 1 || plan[0].StartPage != 1 || plan[0].EndPage != 1 {
		t.Errorf("plan = %+v, want one part covering page 1", plan)
	}
}

func TestPlanInvalidArguments(t *testing.T) {
	if _, err := Plan(0, 5); !errors.Is(err, ErrInvalidPageCount) {
		t.Errorf("Plan(0, 5) err = %v, want ErrInvalidPageCount", err)
	}
	if _, err := Plan(-1, 5); !errors.Is(err, ErrInvalidPageCount) {
		t.Errorf("Plan(-1, 5) err = %v, want ErrInvalidPageCount", err)
	}
	if _, err := Plan(10, 0); !errors.Is(err, ErrInvalidPartSize) {
		t.Errorf("Plan(10, 0) err = %v, want ErrInvalidPartSize", err)
	}
	if _, err := Plan(10, -3); !errors.Is(err, ErrInvalidPartSize) {
		t.Errorf("Plan(10, -3) err = %v, want ErrInvalidPartSize", err)
	}
}

func TestPlanCoverage(t *testing.T) {
	// Every valid plan must contiguously cover [1, pageCount] with the page
	// counts summing to the total.
	for pageCount := 1; pageCount <= 120; pageCount++ {
		for partSize := 1; partSize <= 30; partSize++ {
			plan, err := Plan(pageCount, partSize)
			if err != nil {
				t.Fatalf("Plan(%d, %d): %v", pageCount, partSize, err)
			}
			if err := Verify(plan, pageCount); err != nil {
				t.Fatalf("Verify(Plan(%d, %d)): %v", pageCount, partSize, err)
			}

			sum := 0
			for _, r := range plan {
				if r.Pages() > partSize {
					t.Fatalf("Plan(%d, %d): part %d covers %d pages, limit %d",
						pageCount, partSize, r.Index, r.Pages(), partSize)
				}
				sum += r.Pages()
			}
			if sum != pageCount {
				t.Fatalf("Plan(%d, %d): page counts sum to %d", pageCount, partSize, sum)
			}
		}
	}
}

func TestVerifyRejectsGaps(t *testing.T) {
	bad := []Range{
		{Index: 0, StartPage: 1, EndPage: 5},
		{Index: 1, StartPage: 7, EndPage: 10},
	}
	if err := Verify(bad, 10); err == nil {
		t.Error("expected gap to be rejected")
	}

	overlap := []Range{
		{Index: 0, StartPage: 1, EndPage: 5},
		{Index: 1, StartPage: 5, EndPage: 10},
	}
	if err := Verify(overlap, 10); err == nil {
		t.Error("expected overlap to be rejected")
	}

	short := []Range{
		{Index: 0, StartPage: 1, EndPage: 5},
	}
	if err := Verify(short, 10); err == nil {
		t.Error("expected partial cover to be rejected")
	}
}

func TestClampPartSize(t *testing.T) {
	tests := []struct {
		n, min, max, want int
	}{
		{25, 10, 100, 25},
		{5, 10, 100, 10},
		{250, 10, 100, 100},
		{0, 10, 100, 10},
		{-7, 10, 100, 10},
		{10, 10, 100, 10},
		{100, 10, 100, 100},
	}
	for _, tt := range tests {
		if got := ClampPartSize(tt.n, tt.min, tt.max); got != tt.want {
			t.Errorf("ClampPartSize(%d, %d, %d) = %d, want %d", tt.n, tt.min, tt.max, got, tt.want)
		}
	}
}
