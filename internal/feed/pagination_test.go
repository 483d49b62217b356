package feed

import (
	"strings"
	"testing"
)

func renderItems(items []PageItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, " ")
}

func TestPages_Window(t *testing.T) {
	cases := []struct {
		name           string
		current, total int
		want           string
	}{
		{"single page", 1, 1, "1"},
		{"all pages fit", 1, 3, "1 2 3"},
		{"exactly at threshold", 3, 5, "1 2 3 4 5"},
		{"start of long run", 1, 10, "1 2 ... 10"},
		{"second page", 2, 10, "1 2 3 ... 10"},
		{"third page shows first without leading gap", 3, 10, "1 2 3 4 ... 10"},
		{"fourth page opens the leading gap", 4, 10, "1 ... 3 4 5 ... 10"},
		{"middle", 5, 10, "1 ... 4 5 6 ... 10"},
		{"near the end closes the gap", 8, 10, "1 ... 7 8 9 10"},
		{"second to last", 9, 10, "1 ... 8 9 10"},
		{"last page", 10, 10, "1 ... 9 10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderItems(Pages(tc.current, tc.total, MaxVisiblePages))
			if got != tc.want {
				t.Errorf("Pages(%d, %d) = %q, want %q", tc.current, tc.total, got, tc.want)
			}
		})
	}
}

func TestPages_NoDuplicatesOrOutOfRange(t *testing.T) {
	for total := 1; total <= 15; total++ {
		for current := 1; current <= total; current++ {
			seen := map[int]bool{}
			for _, it := range Pages(current, total, MaxVisiblePages) {
				if it.Gap {
					continue
				}
				if it.Number < 1 || it.Number > total {
					t.Fatalf("Pages(%d, %d) emitted out-of-range page %d", current, total, it.Number)
				}
				if seen[it.Number] {
					t.Fatalf("Pages(%d, %d) emitted duplicate page %d", current, total, it.Number)
				}
				seen[it.Number] = true
			}
		}
	}
}

func TestPages_DefaultsApply(t *testing.T) {
	// maxVisible <= 0 falls back to the standard threshold.
	if got := renderItems(Pages(1, 4, 0)); got != "1 2 3 4" {
		t.Errorf("Pages(1, 4, 0) = %q, want all four pages", got)
	}
	if got := renderItems(Pages(1, 0, 5)); got != "1" {
		t.Errorf("Pages(1, 0, 5) = %q, want a single page", got)
	}
}
