package history

import (
	"sync"
	"time"

	"github.com/ops-vnc/adconsole/internal/console"
)

// Page is one derived snapshot of the history view: the page slice plus the
// pagination and aggregation state computed from a single consistent
// (records, filter) pair.
type Page struct {
	Items        []console.AdRecord    `json:"items"`
	Page         int                   `json:"page"`
	PerPage      int                   `json:"per_page"`
	TotalPages   int                   `json:"total_pages"`
	TotalRecords int                   `json:"total_records"`
	Window       []int                 `json:"window"`
	Aggregate    []console.DomainCount `json:"aggregate"`
	Profiles     []string              `json:"profiles"`
	Domains      []string              `json:"domains"`
	Applied      console.FilterState   `json:"applied"`
}

// View holds the mutable history state: the capped record set, the two-stage
// filter, and pagination. Free-text and date edits stay in the input filter
// until Commit promotes them; multi-select edits apply immediately.
type View struct {
	mu      sync.Mutex
	limit   int
	records []console.AdRecord
	input   console.FilterState
	applied console.FilterState
	page    int
	perPage int

	issuedSeq  uint64
	appliedSeq uint64
}

// NewView constructs a View. limit caps the record set (0 keeps everything);
// perPage must be positive or it falls back to 20. The filter starts with a
// yesterday-to-today date range so a fresh console shows recent activity;
// committing a search with empty bounds clears it.
func NewView(limit, perPage int, clock console.Clock) *View {
	if perPage <= 0 {
		perPage = 20
	}
	v := &View{limit: limit, page: 1, perPage: perPage}
	today := clock.Now()
	yesterday := today.AddDate(0, 0, -1)
	v.input.StartDate = &yesterday
	v.input.EndDate = &today
	v.applied.StartDate = &yesterday
	v.applied.EndDate = &today
	return v
}

// NextLoadSeq hands out a sequence number for a history reload. Responses
// are applied in sequence order; anything older than the latest applied
// reload is discarded.
func (v *View) NextLoadSeq() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issuedSeq++
	return v.issuedSeq
}

// ApplyLoad installs a reload result unless a newer one already landed.
// Records arrive oldest-first and are stored capped, most-recent-first.
func (v *View) ApplyLoad(seq uint64, records []console.AdRecord) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq <= v.appliedSeq {
		return false
	}
	v.appliedSeq = seq
	v.records = CapRecords(records, v.limit)
	return true
}

// EditText updates the live free-text inputs without touching the applied
// filter.
func (v *View) EditText(keyword, link string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input.Keyword = keyword
	v.input.Link = link
}

// EditDateRange updates the live date bounds without touching the applied
// filter.
func (v *View) EditDateRange(start, end *time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input.StartDate = start
	v.input.EndDate = end
}

// SetSelectedProfiles replaces the profile selection. Multi-select edits
// apply immediately and reset the page.
func (v *View) SetSelectedProfiles(names []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input.ProfileNames = cloneStrings(names)
	v.applied.ProfileNames = cloneStrings(names)
	v.page = 1
}

// SetSelectedDomains replaces the domain selection. Multi-select edits apply
// immediately and reset the page.
func (v *View) SetSelectedDomains(domains []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input.Domains = cloneStrings(domains)
	v.applied.Domains = cloneStrings(domains)
	v.page = 1
}

// Commit promotes the live inputs to the applied filter and resets the page.
// Returns the multi-select state so callers can record search history.
func (v *View) Commit() (profiles, domains []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied = console.FilterState{
		ProfileNames: cloneStrings(v.input.ProfileNames),
		Domains:      cloneStrings(v.input.Domains),
		Keyword:      v.input.Keyword,
		Link:         v.input.Link,
		StartDate:    v.input.StartDate,
		EndDate:      v.input.EndDate,
	}
	v.page = 1
	return cloneStrings(v.applied.ProfileNames), cloneStrings(v.applied.Domains)
}

// SetPage moves to the given page. Pages below 1 are ignored.
func (v *View) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page >= 1 {
		v.page = page
	}
}

// SetPerPage changes the page size and resets the page. Non-positive values
// are ignored.
func (v *View) SetPerPage(perPage int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if perPage <= 0 {
		return
	}
	v.perPage = perPage
	v.page = 1
}

// FilterColumns runs the per-column text variant over the loaded records
// without touching the committed filter state. A non-nil at additionally
// restricts matches to timestamps within one minute of the instant.
func (v *View) FilterColumns(f TextFilters, at *time.Time) []console.AdRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	matched := FilterText(v.records, f)
	if at == nil {
		return matched
	}
	out := make([]console.AdRecord, 0, len(matched))
	for _, rec := range matched {
		if MatchInstant(rec.ParsedAt, *at) {
			out = append(out, rec)
		}
	}
	return out
}

// Snapshot derives the current page, pagination window, aggregate, and
// option sets from one consistent view of the state.
func (v *View) Snapshot() Page {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := Filter(v.records, v.applied)
	totalPages := TotalPages(len(filtered), v.perPage)
	profiles, domains := Options(v.records)
	return Page{
		Items:        Paginate(filtered, v.page, v.perPage),
		Page:         v.page,
		PerPage:      v.perPage,
		TotalPages:   totalPages,
		TotalRecords: len(filtered),
		Window:       PageWindow(v.page, totalPages),
		Aggregate:    AggregateByDomain(filtered),
		Profiles:     profiles,
		Domains:      domains,
		Applied:      v.applied,
	}
}

func cloneStrings(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
