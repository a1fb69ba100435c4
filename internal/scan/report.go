package scan

import (
	"fmt"

	"sift/internal/classifier"
)

// FormatSize renders a byte count with two decimals and the first unit the
// value fits under, from B through TB, falling through to PB.
func FormatSize(size int64) string {
	s := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if s < 1024 {
			return fmt.Sprintf("%.2f %s", s, unit)
		}
		s /= 1024
	}
	return fmt.Sprintf("%.2f PB", s)
}

// Percent returns the category's share of the total size, as 0 when nothing
// was scanned.
func (r *Report) Percent(cat classifier.Category) float64 {
	if r.TotalSize <= 0 {
		return 0
	}
	return float64(r.PerCategory[cat].Size) / float64(r.TotalSize) * 100
}

// Lines renders the report for display: a total header followed by one line
// per category in display order.
func (r *Report) Lines() []string {
	lines := make([]string, 0, 7)
	lines = append(lines, fmt.Sprintf("Total Size: %s (%d files)", FormatSize(r.TotalSize), r.TotalCount))
	for _, cat := range classifier.Categories() {
		cs := r.PerCategory[cat]
		lines = append(lines, fmt.Sprintf("%s: %s (%d files, %.1f%%)",
			cat.Label(), FormatSize(cs.Size), cs.Count, r.Percent(cat)))
	}
	return lines
}
