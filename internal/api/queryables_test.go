package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

type queryablesResponse struct {
	ID         string                    `json:"$id"`
	Title      string                    `json:"title"`
	Properties map[string]map[string]any `json:"properties"`
}

func getQueryables(t *testing.T, h *Handlers, collectionID string) (*httptest.ResponseRecorder, queryablesResponse) {
	t.Helper()

	path := "/queryables"
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if collectionID != "" {
		path = "/collections/" + collectionID + "/queryables"
		req = withCollectionID(httptest.NewRequest(http.MethodGet, path, nil), collectionID)
	}

	w := httptest.NewRecorder()
	h.Queryables(w, req)

	var resp queryablesResponse
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
	}
	return w, resp
}

func enumOf(prop map[string]any) []string {
	values, _ := prop["enum"].([]any)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestQueryables_Global(t *testing.T) {
	h := newTestHandlers(t, &mockBackend{})

	w, resp := getQueryables(t, h, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if resp.ID != "http://test.example.com/queryables" {
		t.Errorf("Unexpected $id %s", resp.ID)
	}

	for _, field := range []string{"datetime", "bbox", "intersects", "eo:cloud_cover", "s2:mgrs_tile", "sat:relative_orbit"} {
		if _, ok := resp.Properties[field]; !ok {
			t.Errorf("Expected queryable %s", field)
		}
	}

	for _, field := range []string{"platform", "constellation"} {
		if _, ok := resp.Properties[field]; ok {
			t.Errorf("Queryable %s is not accepted by /search", field)
		}
	}

	orbit := resp.Properties["sat:relative_orbit"]
	if orbit["type"] != "string" || orbit["pattern"] != "^R[0-9]{3}$" {
		t.Errorf("Unexpected orbit schema %v", orbit)
	}
	if _, ok := resp.Properties["landsat:sensor"]; !ok {
		t.Error("Expected landsat:sensor in the global queryables")
	}
}

func TestQueryables_Collection(t *testing.T) {
	h := newTestHandlers(t, &mockBackend{})

	_, resp := getQueryables(t, h, "landsat-c2-l1")
	if resp.Title != "Queryables for landsat-c2-l1" {
		t.Errorf("Unexpected title %s", resp.Title)
	}
	if got := enumOf(resp.Properties["landsat:sensor"]); !slices.Equal(got, []string{"LT05", "LE07", "LC08", "LC09"}) {
		t.Errorf("Unexpected sensor enum %v", got)
	}
}

func TestQueryables_SentinelCollectionHasNoSensors(t *testing.T) {
	h := newTestHandlers(t, &mockBackend{})

	_, resp := getQueryables(t, h, "sentinel-2-l1c")
	if _, ok := resp.Properties["landsat:sensor"]; ok {
		t.Error("Sentinel-2 queryables should not offer landsat:sensor")
	}
	if _, ok := resp.Properties["s2:mgrs_tile"]; !ok {
		t.Error("Expected s2:mgrs_tile")
	}
}

func TestQueryables_UnknownCollection(t *testing.T) {
	h := newTestHandlers(t, &mockBackend{})

	w, _ := getQueryables(t, h, "modis")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
