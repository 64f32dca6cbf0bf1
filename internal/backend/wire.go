package backend

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ops-vnc/adconsole/internal/console"
)

// DisplayTimeLayout is the canonical rendering of history timestamps.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// objectID unwraps a Mongo-style {"$oid": "..."} envelope or accepts a plain
// string id.
type objectID struct {
	value string
}

func (o *objectID) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		o.value = plain
		return nil
	}
	var wrapped struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	o.value = wrapped.OID
	return nil
}

// flexTime accepts the timestamp shapes the backend is known to emit: a
// {"$date": ...} envelope, an RFC 3339 string, a "2006-01-02 15:04:05"
// string, or epoch milliseconds. Unparsable values leave the zero time.
type flexTime struct {
	value time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Date json.RawMessage `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Date != nil {
		data = wrapped.Date
		var inner struct {
			NumberLong string `json:"$numberLong"`
		}
		if err := json.Unmarshal(data, &inner); err == nil && inner.NumberLong != "" {
			data = []byte(inner.NumberLong)
		}
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = parseTimeString(s)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		f.value = time.UnixMilli(ms).UTC()
		return nil
	}
	// Unknown shape renders as "N/A" rather than failing the whole fetch.
	f.value = time.Time{}
	return nil
}

func parseTimeString(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		DisplayTimeLayout,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// FormatTimestamp renders a parsed timestamp for display, "N/A" when the
// source value could not be parsed.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(DisplayTimeLayout)
}

type adWire struct {
	ProfileName    string   `json:"profile_name"`
	Keyword        string   `json:"keyword"`
	Link           string   `json:"link"`
	Domain         string   `json:"domain"`
	Advertiser     string   `json:"advertiser"`
	Timestamp      flexTime `json:"timestamp"`
	ScreenshotPath string   `json:"screenshot_path"`
}

func (a adWire) record() console.AdRecord {
	return console.AdRecord{
		ProfileName:    a.ProfileName,
		Keyword:        a.Keyword,
		Link:           a.Link,
		Domain:         a.Domain,
		Advertiser:     a.Advertiser,
		Timestamp:      FormatTimestamp(a.Timestamp.value),
		ScreenshotPath: a.ScreenshotPath,
		ParsedAt:       a.Timestamp.value,
	}
}

type keywordWire struct {
	ID      objectID `json:"_id"`
	Keyword string   `json:"keyword"`
}

type profileWire struct {
	ID               objectID `json:"_id"`
	Name             string   `json:"name"`
	UserDataDir      string   `json:"user_data_dir"`
	ProfileDirectory string   `json:"profile_directory"`
	UserAgent        string   `json:"user_agent"`
}
