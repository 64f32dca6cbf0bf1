// Package history implements the crawl-history query engine: predicate
// evaluation, pagination, and per-domain aggregation over the in-memory ad
// record set.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/ops-vnc/adconsole/internal/console"
)

// CapRecords keeps the most recent cap entries of a chronologically ordered
// fetch and returns them most-recent-first.
func CapRecords(records []console.AdRecord, limit int) []console.AdRecord {
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]console.AdRecord, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	return out
}

// Filter returns the records passing every clause of the filter state.
func Filter(records []console.AdRecord, f console.FilterState) []console.AdRecord {
	out := make([]console.AdRecord, 0, len(records))
	for _, rec := range records {
		if matches(rec, f) {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec console.AdRecord, f console.FilterState) bool {
	if len(f.ProfileNames) > 0 && !contains(f.ProfileNames, rec.ProfileName) {
		return false
	}
	if len(f.Domains) > 0 && !contains(f.Domains, rec.Domain) {
		return false
	}
	if !MatchText(rec.Keyword, f.Keyword) {
		return false
	}
	if !MatchText(rec.Link, f.Link) {
		return false
	}
	return matchDay(rec.ParsedAt, f.StartDate, f.EndDate)
}

// MatchText reports whether the field matches a comma-separated free-text
// filter: the filter is split into trimmed lower-cased tokens and the field
// must contain at least one of them. An empty filter passes everything.
func MatchText(field, filter string) bool {
	tokens := splitTokens(filter)
	if len(tokens) == 0 {
		return true
	}
	lowered := strings.ToLower(field)
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return false
}

func splitTokens(filter string) []string {
	var tokens []string
	for _, part := range strings.Split(filter, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// matchDay compares at calendar-day granularity, inclusive on both ends.
// Records whose timestamp could not be parsed pass any bound: hiding them
// behind a date filter would make "N/A" rows unreachable.
func matchDay(ts time.Time, start, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	if ts.IsZero() {
		return true
	}
	day := truncateDay(ts)
	if start != nil && day.Before(truncateDay(*start)) {
		return false
	}
	if end != nil && day.After(truncateDay(*end)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MatchInstant reports whether a record timestamp falls within one minute of
// the target instant.
func MatchInstant(ts, target time.Time) bool {
	diff := ts.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff < time.Minute
}

func contains(set []string, value string) bool {
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}

// TextFilters is the single-field free-text variant: every column, including
// the rendered timestamp, is matched by comma-separated substring tokens.
type TextFilters struct {
	ProfileName string
	Keyword     string
	Link        string
	Domain      string
	Timestamp   string
}

// FilterText applies the single-field variant over all columns.
func FilterText(records []console.AdRecord, f TextFilters) []console.AdRecord {
	out := make([]console.AdRecord, 0, len(records))
	for _, rec := range records {
		if MatchText(rec.ProfileName, f.ProfileName) &&
			MatchText(rec.Keyword, f.Keyword) &&
			MatchText(rec.Link, f.Link) &&
			MatchText(rec.Domain, f.Domain) &&
			MatchText(rec.Timestamp, f.Timestamp) {
			out = append(out, rec)
		}
	}
	return out
}

// Options derives the selectable filter values from the loaded record set:
// distinct, sorted, non-empty profile names and domains.
func Options(records []console.AdRecord) (profiles, domains []string) {
	return distinct(records, func(r console.AdRecord) string { return r.ProfileName }),
		distinct(records, func(r console.AdRecord) string { return r.Domain })
}

func distinct(records []console.AdRecord, field func(console.AdRecord) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		v := field(rec)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// TotalPages returns ceil(count/perPage).
func TotalPages(count, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (count + perPage - 1) / perPage
}

// Paginate slices one page out of the filtered set. Out-of-range pages
// return an empty slice.
func Paginate(filtered []console.AdRecord, page, perPage int) []console.AdRecord {
	if page < 1 || perPage <= 0 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(filtered) {
		return nil
	}
	end := start + perPage
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

// Ellipsis marks a collapsed run of page numbers in a page window.
const Ellipsis = -1

// pageWindowThreshold is the page count above which the display collapses.
const pageWindowThreshold = 4

// PageWindow returns the page numbers to display, with Ellipsis entries
// where runs are collapsed. Page 1 and the last page always appear; the
// window [current-1, current, current+1] is clipped to the valid range.
func PageWindow(current, total int) []int {
	if total <= 0 {
		return nil
	}
	if total <= pageWindowThreshold {
		pages := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
		return pages
	}
	pages := []int{1}
	if current > 2 {
		pages = append(pages, Ellipsis)
	}
	for p := current - 1; p <= current+1; p++ {
		if p > 1 && p < total {
			pages = append(pages, p)
		}
	}
	if current < total-1 {
		pages = append(pages, Ellipsis)
	}
	return append(pages, total)
}

// AggregateByDomain groups the filtered set by domain and counts records per
// group, descending by count. Missing domains fall under "N/A".
func AggregateByDomain(filtered []console.AdRecord) []console.DomainCount {
	counts := make(map[string]int)
	for _, rec := range filtered {
		key := rec.Domain
		if key == "" {
			key = "N/A"
		}
		counts[key]++
	}
	out := make([]console.DomainCount, 0, len(counts))
	for domain, count := range counts {
		out = append(out, console.DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}
