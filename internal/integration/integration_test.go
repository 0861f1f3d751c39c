// Package integration provides live tests against the CDSE catalogue.
// Run with: go test -v ./internal/integration -tags=integration
//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/scene"
	"github.com/vpremier/data-download/pkg/server"
)

// A small area over the Adige valley and a month in which several
// Sentinel-2 tiles were reprocessed.
var (
	testBBox  = []float64{11.0, 46.3, 11.4, 46.6}
	testStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	cfg.STAC.BaseURL = "http://test.local"
	return cfg
}

func TestCDSESearch_Deduplicates(t *testing.T) {
	cfg := testConfig(t)
	collections := config.DefaultCollections()
	col := collections.Get("sentinel-2-l1c")

	b, err := backend.NewSet(cfg, testLogger()).For(col)
	if err != nil {
		t.Fatalf("no backend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := b.Search(ctx, &backend.SearchParams{
		Collection:    col,
		BBox:          testBBox,
		Start:         testStart,
		End:           testEnd,
		MaxCloudCover: 100,
		Dedup:         scene.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Records) == 0 {
		t.Fatal("expected at least one scene")
	}
	if res.Summary == nil {
		t.Fatal("expected a dedup summary")
	}
	if res.Summary.After != len(res.Records) {
		t.Errorf("summary after = %d, records = %d", res.Summary.After, len(res.Records))
	}
	t.Logf("catalogue returned %d records, kept %d, tiles %v",
		res.Summary.Before, res.Summary.After, res.Tiles)

	// Each kept record must carry the newest baseline seen for its key.
	best := map[string]string{}
	for _, r := range res.Records {
		id, err := scene.ParseIdentifier(r.Name)
		if err != nil {
			t.Errorf("kept unparsable name %q", r.Name)
			continue
		}
		if id.Baseline > best[id.Key()] {
			best[id.Key()] = id.Baseline
		}
	}
	for _, r := range res.Records {
		id, _ := scene.ParseIdentifier(r.Name)
		if id.Baseline != best[id.Key()] {
			t.Errorf("%s kept with baseline %s, newest is %s", r.Name, id.Baseline, best[id.Key()])
		}
	}
}

func TestSTACSearch_Pages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.DefaultLimit = 2

	srv := server.NewFromConfig(cfg, config.DefaultCollections(), testLogger())
	defer srv.Close()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{
		"collections": []string{"sentinel-2-l1c"},
		"bbox":        testBBox,
		"datetime":    testStart.Format(time.RFC3339) + "/" + testEnd.Format(time.RFC3339),
	})
	resp, err := http.Post(ts.URL+"/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}

	var page struct {
		Type     string `json:"type"`
		Features []struct {
			ID string `json:"id"`
		} `json:"features"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
		Dedup *scene.Summary `json:"dedup"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if page.Type != "FeatureCollection" {
		t.Errorf("type = %q", page.Type)
	}
	if len(page.Features) > 2 {
		t.Errorf("page has %d features, limit is 2", len(page.Features))
	}
	if page.Dedup == nil {
		t.Fatal("expected dedup summary")
	}

	if page.Dedup.After <= 2 {
		return
	}
	var next string
	for _, l := range page.Links {
		if l.Rel == "next" {
			next = l.Href
		}
	}
	if next == "" {
		t.Fatal("expected a next link")
	}
	t.Logf("next page: %s", next)
}

func TestErrorHandling(t *testing.T) {
	srv := server.NewFromConfig(testConfig(t), config.DefaultCollections(), testLogger())
	defer srv.Close()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown collection", "/search?collections=modis&datetime=2022-01-01/2022-02-01", http.StatusNotFound},
		{"landsat without account", "/search?collections=landsat-c2-l1&datetime=2022-01-01/2022-02-01", http.StatusServiceUnavailable},
		{"missing datetime", "/search?collections=sentinel-2-l1c", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
