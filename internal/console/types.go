// Package console defines core types shared across the operator console.
package console

import "time"

// RunState represents the observed lifecycle state of the backend crawl.
type RunState string

// Run states driven by the status poller and start attempts.
const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
	RunStateDone    RunState = "done"
)

// CrawlState is the console's view of the backend crawl, including the
// outcome message of the most recent start attempt.
type CrawlState struct {
	State     RunState   `json:"state"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// AdRecord is one row of crawl history as served by the backend. Records are
// immutable on the console side.
type AdRecord struct {
	ProfileName    string `json:"profile_name"`
	Keyword        string `json:"keyword"`
	Link           string `json:"link"`
	Domain         string `json:"domain"`
	Advertiser     string `json:"advertiser"`
	Timestamp      string `json:"timestamp"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// ParsedAt is the decoded timestamp; zero when the raw value was
	// unparsable, in which case Timestamp renders as "N/A".
	ParsedAt time.Time `json:"-"`
}

// FilterState captures one consistent set of history predicates. Multi-select
// fields match exactly; free-text fields match by comma-separated substring
// tokens; the date bounds are inclusive at calendar-day granularity.
type FilterState struct {
	ProfileNames []string   `json:"profile_names"`
	Domains      []string   `json:"domains"`
	Keyword      string     `json:"keyword"`
	Link         string     `json:"link"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// Keyword is a crawl search term managed by the keyword registry.
type Keyword struct {
	ID   string `json:"id"`
	Text string `json:"keyword"`
}

// Profile is a browser profile record managed by the profile registry.
type Profile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	UserDataDir      string `json:"user_data_dir"`
	ProfileDirectory string `json:"profile_directory"`
	UserAgent        string `json:"user_agent"`
}

// SchedulerConfig holds the recurring-crawl cadence.
type SchedulerConfig struct {
	Interval int    `json:"interval"`
	Unit     string `json:"unit"`
}

// DomainCount is one bar of the per-domain aggregate.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
