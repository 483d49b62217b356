package feed

import "strconv"

// MaxVisiblePages is the threshold below which every page number is shown.
const MaxVisiblePages = 5

// PageItem is one entry in a rendered pager: either a page number or an
// ellipsis gap.
type PageItem struct {
	Number int
	Gap    bool
}

// String renders the item the way the pager displays it.
func (p PageItem) String() string {
	if p.Gap {
		return "..."
	}
	return strconv.Itoa(p.Number)
}

// Pages produces the compact pager window for the given position.
//
// With total <= maxVisible every page is listed. Otherwise: the first page
// (once current > 2), a gap (once current > 3), the window
// [current-1, current+1] clamped to [1, total], a gap (while current is
// more than two short of the end), and the last page (while current is more
// than one short of it). The result never contains duplicates or
// out-of-range numbers. maxVisible <= 0 selects the default of 5.
func Pages(current, total, maxVisible int) []PageItem {
	if maxVisible <= 0 {
		maxVisible = MaxVisiblePages
	}
	if total < 1 {
		total = 1
	}

	var items []PageItem
	if total <= maxVisible {
		for i := 1; i <= total; i++ {
			items = append(items, PageItem{Number: i})
		}
		return items
	}

	if current > 2 {
		items = append(items, PageItem{Number: 1})
	}
	if current > 3 {
		items = append(items, PageItem{Gap: true})
	}

	start := current - 1
	if start < 1 {
		start = 1
	}
	end := current + 1
	if end > total {
		end = total
	}
	for i := start; i <= end; i++ {
		items = append(items, PageItem{Number: i})
	}

	if current < total-2 {
		items = append(items, PageItem{Gap: true})
	}
	if current < total-1 {
		items = append(items, PageItem{Number: total})
	}
	return items
}
