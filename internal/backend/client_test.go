package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/console"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, zap.NewNop())
}

func TestFetchAdsDecodesEnvelopes(t *testing.T) {
	t.Parallel()

	payload := `[
		{
			"_id": {"$oid": "abc123"},
			"profile_name": "work",
			"keyword": "shoes",
			"link": "https://shop.example.com/ad",
			"domain": "shop.example.com",
			"advertiser": "Shop Inc",
			"timestamp": {"$date": "2025-06-01T10:30:00Z"},
			"screenshot_path": "shots/1.png"
		},
		{
			"profile_name": "work",
			"keyword": "shoes",
			"link": "https://other.example.com/ad",
			"domain": "other.example.com",
			"timestamp": {"$date": {"$numberLong": "1748774400000"}}
		},
		{
			"profile_name": "work",
			"keyword": "shoes",
			"link": "https://bad.example.com/ad",
			"domain": "bad.example.com",
			"timestamp": {"nested": true}
		}
	]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ads", r.URL.Path)
		io.WriteString(w, payload)
	}))

	ads, err := c.FetchAds(context.Background())
	require.NoError(t, err)
	require.Len(t, ads, 3)

	require.Equal(t, "2025-06-01 10:30:00", ads[0].Timestamp)
	require.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), ads[0].ParsedAt)
	require.Equal(t, "Shop Inc", ads[0].Advertiser)

	require.Equal(t, time.UnixMilli(1748774400000).UTC(), ads[1].ParsedAt)

	// Unparsable timestamps render as N/A instead of failing the fetch.
	require.Equal(t, "N/A", ads[2].Timestamp)
	require.True(t, ads[2].ParsedAt.IsZero())
}

func TestFetchAdsRejectsNonArray(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error": "oops"}`)
	}))

	_, err := c.FetchAds(context.Background())
	require.Error(t, err)
}

func TestFetchAdsServerError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.FetchAds(context.Background())
	require.Error(t, err)
}

func TestStartCrawlOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   StartResult
	}{
		{"accepted", http.StatusAccepted, `{"message": "ok"}`, StartResult{StatusCode: http.StatusAccepted}},
		{"conflict with reason", http.StatusConflict, `{"error": "busy"}`, StartResult{StatusCode: http.StatusConflict, ConflictReason: "busy"}},
		{"conflict malformed body", http.StatusConflict, `not json`, StartResult{StatusCode: http.StatusConflict}},
		{"server error", http.StatusInternalServerError, `crawler exploded`, StartResult{StatusCode: http.StatusInternalServerError, Body: "crawler exploded"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/api/crawl", r.URL.Path)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			got, err := c.StartCrawl(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStartCrawlTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{BaseURL: srv.URL}, zap.NewNop())

	_, err := c.StartCrawl(context.Background())
	require.Error(t, err)
}

func TestCrawlStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/crawl_status", r.URL.Path)
		io.WriteString(w, `{"status": "running"}`)
	}))

	status, err := c.CrawlStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, "running", status)
}

func TestKeywordRequests(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		if r.URL.Path == "/api/keywords/" {
			io.WriteString(w, `[{"_id": {"$oid": "k1"}, "keyword": "shoes"}]`)
		}
	}))

	keywords, err := c.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Equal(t, []console.Keyword{{ID: "k1", Text: "shoes"}}, keywords)

	require.NoError(t, c.CreateKeyword(context.Background(), "bags"))
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/api/keywords/create", gotPath)
	require.Equal(t, map[string]string{"keyword": "bags"}, gotBody)

	require.NoError(t, c.UpdateKeyword(context.Background(), "k1", "hats"))
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/api/keywords/update", gotPath)
	require.Equal(t, map[string]string{"keyword_id": "k1", "new_keyword": "hats"}, gotBody)

	require.NoError(t, c.DeleteKeyword(context.Background(), "k1"))
	require.Equal(t, "/api/keywords/delete", gotPath)
	require.Equal(t, map[string]string{"keyword_id": "k1"}, gotBody)
}

func TestProfileRequests(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotQuery string
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		if r.URL.Path == "/api/profiles/" {
			io.WriteString(w, `[{"_id": "p1", "name": "work", "user_data_dir": "/data", "profile_directory": "Default", "user_agent": "UA"}]`)
		}
	}))

	profiles, err := c.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Equal(t, []console.Profile{{
		ID:               "p1",
		Name:             "work",
		UserDataDir:      "/data",
		ProfileDirectory: "Default",
		UserAgent:        "UA",
	}}, profiles)

	require.NoError(t, c.UpdateProfile(context.Background(), "p1", map[string]string{"name": "personal"}))
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/api/profiles/update", gotPath)
	require.Equal(t, "p1", gotBody["profile_id"])

	require.NoError(t, c.DeleteProfile(context.Background(), "p1"))
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/api/profiles/delete", gotPath)
	require.Equal(t, "profile_id=p1", gotQuery)
}

func TestCreateProfileConflict(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/profiles/create", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"detail": "Profile da ton tai"}`)
	}))

	err := c.CreateProfile(context.Background(), console.Profile{Name: "work"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "Profile da ton tai", conflict.Detail)
}

func TestCreateKeywordConflictWithoutDetail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	err := c.CreateKeyword(context.Background(), "shoes")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "conflict", conflict.Error())
}

func TestSchedulerConfigRoundTrip(t *testing.T) {
	t.Parallel()

	var gotMethod string
	var gotBody console.SchedulerConfig
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.Equal(t, "/api/scheduler/config", r.URL.Path)
		if r.Method == http.MethodPut {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
			return
		}
		io.WriteString(w, `{"interval": 10, "unit": "minutes"}`)
	}))

	cfg, err := c.SchedulerConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, console.SchedulerConfig{Interval: 10, Unit: "minutes"}, cfg)

	require.NoError(t, c.UpdateSchedulerConfig(context.Background(), console.SchedulerConfig{Interval: 1, Unit: "hours"}))
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, console.SchedulerConfig{Interval: 1, Unit: "hours"}, gotBody)
}
