package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpremier/data-download/internal/archive"
	"github.com/vpremier/data-download/internal/cdse"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/m2m"
	"github.com/vpremier/data-download/internal/scene"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcher() *archive.Fetcher {
	return archive.NewFetcher(0, time.Millisecond, 5*time.Second).WithLogger(quietLogger())
}

func square(x0, y0, size float64) map[string]any {
	return map[string]any{
		"type": "Polygon",
		"coordinates": [][][]float64{{
			{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
		}},
	}
}

func product(id, name string, footprint map[string]any, cc float64) map[string]any {
	return map[string]any{
		"Id":           id,
		"Name":         name,
		"Online":       true,
		"ContentDate":  map[string]string{"Start": "2024-06-04T10:10:31.024Z", "End": "2024-06-04T10:10:31.024Z"},
		"GeoFootprint": footprint,
		"Attributes": []map[string]any{
			{"@odata.type": "#OData.CSC.DoubleAttribute", "Name": "cloudCover", "Value": cc},
		},
	}
}

func fakeCDSE(t *testing.T) *httptest.Server {
	t.Helper()
	products := []map[string]any{
		product("p1", "S2A_MSIL1C_20240604T101031_N0400_R022_T32TNS_20240604T120000.SAFE", square(10, 45, 1), 10),
		product("p2", "S2A_MSIL1C_20240604T101031_N0510_R022_T32TNS_20240604T130000.SAFE", square(10, 45, 1), 10),
		product("p3", "S2A_MSIL1C_20240604T101031_N0510_R022_T32TPS_20240604T130000.SAFE", square(11, 45, 1), 20),
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/odata/v1/Products":
			if filter := r.URL.Query().Get("$filter"); !strings.Contains(filter, "Value eq 'S2MSI1C'") {
				t.Errorf("unexpected filter %s", filter)
			}
			json.NewEncoder(w).Encode(map[string]any{"value": products})
		case r.URL.Path == "/token":
			w.Write([]byte(`{"access_token":"secret-token","expires_in":600}`))
		case strings.HasPrefix(r.URL.Path, "/zipper/Products("):
			if r.Header.Get("Authorization") != "Bearer secret-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("zip:" + r.URL.Path))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newSentinelBackend(server *httptest.Server) *SentinelBackend {
	tokens := cdse.NewTokenSource(cdse.Credentials{
		TokenURL: server.URL + "/token",
		ClientID: "cdse-public",
		Username: "user",
		Password: "pass",
	}, 10*time.Minute, nil)
	client := cdse.NewClient(server.URL+"/odata/v1", server.URL+"/zipper", 5*time.Second).
		WithLogger(quietLogger()).
		WithTokenSource(tokens)
	return NewSentinelBackend(client, testFetcher(), 1000, 2, quietLogger())
}

func TestSentinelBackend_SearchAndDownload(t *testing.T) {
	server := fakeCDSE(t)
	defer server.Close()

	b := newSentinelBackend(server)
	params := &SearchParams{
		Collection:    config.DefaultCollections().Get("sentinel-2-l1c"),
		BBox:          []float64{10, 45, 12, 46},
		Start:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 50,
		Dedup:         scene.DefaultOptions(),
	}

	res, err := b.Search(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "p2", res.Records[0].ID, "the newer baseline wins")
	assert.Equal(t, "p3", res.Records[1].ID)
	assert.Equal(t, []string{"T32TNS", "T32TPS"}, res.Tiles)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.Before)
	assert.Equal(t, 2, res.Summary.After)

	rec := res.Records[0]
	require.NotNil(t, rec.CloudCover)
	assert.Equal(t, 10.0, *rec.CloudCover)
	assert.Equal(t, "sentinel-2-l1c", rec.Collection)

	outDir := t.TempDir()
	dl, err := b.Download(context.Background(), res.Records, outDir)
	require.NoError(t, err)
	assert.Equal(t, 2, dl.Downloaded)
	assert.Empty(t, dl.Failed)

	data, err := os.ReadFile(filepath.Join(outDir, "Sentinel2", "T32TNS", "S2A_MSIL1C_20240604T101031_N0510_R022_T32TNS_20240604T130000.zip"))
	require.NoError(t, err)
	assert.Equal(t, "zip:/zipper/Products(p2)/$value", string(data))

	// A second run finds everything on disk.
	dl, err = b.Download(context.Background(), res.Records, outDir)
	require.NoError(t, err)
	assert.Equal(t, 2, dl.Skipped)
	assert.Zero(t, dl.Downloaded)
}

func TestSentinelBackend_DownloadRenewsToken(t *testing.T) {
	var tokenCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token":
			n := atomic.AddInt32(&tokenCalls, 1)
			fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":600}`, n)
		case strings.HasPrefix(r.URL.Path, "/zipper/Products("):
			// The first token was revoked server side before it expired.
			if r.Header.Get("Authorization") != "Bearer tok-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("zip"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	b := newSentinelBackend(server)
	rec := scene.Record{
		ID:   "p2",
		Name: "S2A_MSIL1C_20240604T101031_N0510_R022_T32TNS_20240604T130000.SAFE",
	}

	dl, err := b.Download(context.Background(), []scene.Record{rec}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, dl.Downloaded)
	assert.Empty(t, dl.Failed)
	assert.EqualValues(t, 2, atomic.LoadInt32(&tokenCalls))
}

func TestSentinelBackend_NoDedupForOtherCollections(t *testing.T) {
	server := fakeCDSE(t)
	defer server.Close()

	b := newSentinelBackend(server)
	col := &config.CollectionConfig{
		ID:     "plain",
		Source: config.SourceCDSE,
		CDSE:   &config.CDSEMapping{ProductType: "S2MSI1C"},
	}
	res, err := b.Search(context.Background(), &SearchParams{
		Collection: col,
		Start:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Nil(t, res.Summary)
}

func TestSearchParams_Validate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	col := config.DefaultCollections().Get("sentinel-2-l2a")

	assert.Error(t, (&SearchParams{Start: start, End: start.AddDate(0, 1, 0)}).Validate())
	assert.Error(t, (&SearchParams{Collection: col, Start: start, End: start}).Validate())
	assert.Error(t, (&SearchParams{Collection: col, Start: start, End: start.AddDate(0, 1, 0), BBox: []float64{1, 2}}).Validate())
	assert.NoError(t, (&SearchParams{Collection: col, Start: start, End: start.AddDate(0, 1, 0)}).Validate())
}

func TestSet_For(t *testing.T) {
	registry := config.DefaultCollections()
	set := Set{config.SourceCDSE: &SentinelBackend{}}

	b, err := set.For(registry.Get("sentinel-2-l1c"))
	require.NoError(t, err)
	assert.Equal(t, "cdse", b.Name())

	_, err = set.For(registry.Get("landsat-c2-l1"))
	assert.Error(t, err)
}

// fakeUSGS serves the M2M endpoints and the staged archive files.
type fakeUSGS struct {
	server    *httptest.Server
	retrieves int32
	preparing bool
}

func newFakeUSGS(t *testing.T, preparing bool) *fakeUSGS {
	t.Helper()
	f := &fakeUSGS{preparing: preparing}

	downloadIDs := map[string]int{"E8": 100, "E9": 101, "E7": 102}

	reply := func(w http.ResponseWriter, data any) {
		json.NewEncoder(w).Encode(map[string]any{"data": data, "errorCode": nil, "errorMessage": nil})
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/files/") {
			w.Write([]byte("tar:" + strings.TrimPrefix(r.URL.Path, "/files/")))
			return
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		switch strings.TrimPrefix(r.URL.Path, "/api/") {
		case "login-token":
			reply(w, "api-key")
		case "logout":
			reply(w, nil)
		case "scene-search":
			switch body["datasetName"] {
			case "landsat_ot_c2_l1":
				reply(w, map[string]any{
					"recordsReturned": 3, "totalHits": 3,
					"results": []map[string]any{
						{"entityId": "E8", "displayId": "LC08_L1TP_193028_20220110_20220123_02_T1", "cloudCover": "3.5"},
						{"entityId": "E9", "displayId": "LC09_L1TP_193028_20220118_20220118_02_T2", "cloudCover": 40},
						{"entityId": "E8b", "displayId": "LC08_L1TP_193028_20220110_20220123_02_T1", "cloudCover": "3.5"},
					},
				})
			case "landsat_etm_c2_l1":
				reply(w, map[string]any{
					"recordsReturned": 1, "totalHits": 1,
					"results": []map[string]any{
						{"entityId": "E7", "displayId": "LE07_L1TP_193028_20220102_20220128_02_T1", "cloudCover": 12},
					},
				})
			default:
				reply(w, map[string]any{"results": []any{}})
			}
		case "download-options":
			var opts []map[string]any
			for _, id := range body["entityIds"].([]any) {
				opts = append(opts,
					map[string]any{"id": "p-" + id.(string), "entityId": id, "available": true, "downloadSystem": "ls_zip"},
					map[string]any{"id": "d-" + id.(string), "entityId": id, "available": true, "downloadSystem": "dds"},
				)
			}
			reply(w, opts)
		case "download-request":
			downloads := body["downloads"].([]any)
			var staged []map[string]any
			newRecords := map[string]string{}
			for _, d := range downloads {
				entity := d.(map[string]any)["entityId"].(string)
				id := downloadIDs[entity]
				staged = append(staged, map[string]any{"downloadId": id, "entityId": entity, "url": fmt.Sprintf("%s/files/%s", f.server.URL, entity)})
				newRecords[fmt.Sprint(id)] = body["label"].(string)
			}
			if f.preparing {
				reply(w, map[string]any{"availableDownloads": []any{}, "preparingDownloads": staged, "newRecords": newRecords, "duplicateProducts": []any{}, "failed": []any{}})
				return
			}
			reply(w, map[string]any{"availableDownloads": staged, "preparingDownloads": []any{}, "newRecords": newRecords, "duplicateProducts": []any{}, "failed": []any{}})
		case "download-retrieve":
			n := atomic.AddInt32(&f.retrieves, 1)
			available := []map[string]any{
				{"downloadId": 100, "entityId": "E8", "url": f.server.URL + "/files/E8"},
				{"downloadId": 999, "entityId": "E0", "url": f.server.URL + "/files/E0"},
			}
			if n > 2 {
				available = append(available, map[string]any{"downloadId": 101, "entityId": "E9", "url": f.server.URL + "/files/E9"})
			}
			reply(w, map[string]any{"available": available, "requested": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return f
}

func newLandsatBackend(f *fakeUSGS) *LandsatBackend {
	client := m2m.NewClient(f.server.URL+"/api", 5*time.Second, 0).WithLogger(quietLogger())
	b := NewLandsatBackend(client, testFetcher(), LandsatOptions{
		Username:     "user",
		Token:        "token",
		MaxResults:   10000,
		PollInterval: time.Second,
		MaxPolls:     5,
	}, quietLogger())
	b.sleep = func(context.Context, time.Duration) error { return nil }
	return b
}

func landsatParams(sensors ...string) *SearchParams {
	return &SearchParams{
		Collection:    config.DefaultCollections().Get("landsat-c2-l1"),
		BBox:          []float64{11, 46, 12, 47},
		Start:         time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: 50,
		Sensors:       sensors,
	}
}

func TestLandsatBackend_Search(t *testing.T) {
	f := newFakeUSGS(t, false)
	defer f.server.Close()

	res, err := newLandsatBackend(f).Search(context.Background(), landsatParams())
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "LE07_L1TP_193028_20220102_20220128_02_T1", res.Records[0].Name)
	assert.Equal(t, "E8b", res.Records[1].ID, "last occurrence of a display id wins")
	assert.Equal(t, []string{"LE07", "LC08", "LC09"}, res.Sensors)
	assert.Equal(t, []string{"193028"}, res.Tiles)
	require.NotNil(t, res.Records[1].CloudCover)
	assert.Equal(t, 3.5, *res.Records[1].CloudCover)
}

func TestLandsatBackend_SearchSensorSubset(t *testing.T) {
	f := newFakeUSGS(t, false)
	defer f.server.Close()

	b := newLandsatBackend(f)
	res, err := b.Search(context.Background(), landsatParams("LC09"))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "E9", res.Records[0].ID)

	_, err = b.Search(context.Background(), landsatParams("LM01"))
	assert.Error(t, err)
}

func TestLandsatBackend_DownloadImmediate(t *testing.T) {
	f := newFakeUSGS(t, false)
	defer f.server.Close()

	b := newLandsatBackend(f)
	records := []scene.Record{
		{Name: "LC08_L1TP_193028_20220110_20220123_02_T1", ID: "E8"},
		{Name: "LE07_L1TP_193028_20220102_20220128_02_T1", ID: "E7"},
		{Name: "not-a-landsat-id", ID: "X"},
	}

	outDir := t.TempDir()
	res, err := b.Download(context.Background(), records, outDir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Downloaded)
	require.Len(t, res.Failed, 1)

	data, err := os.ReadFile(filepath.Join(outDir, "Landsat", "LC08", "193028", "LC08_L1TP_193028_20220110_20220123_02_T1.tar"))
	require.NoError(t, err)
	assert.Equal(t, "tar:E8", string(data))
	assert.True(t, archive.Exists(filepath.Join(outDir, "Landsat", "LE07", "193028", "LE07_L1TP_193028_20220102_20220128_02_T1.tar")))
}

func TestLandsatBackend_DownloadPolling(t *testing.T) {
	f := newFakeUSGS(t, true)
	defer f.server.Close()

	b := newLandsatBackend(f)
	records := []scene.Record{
		{Name: "LC08_L1TP_193028_20220110_20220123_02_T1", ID: "E8"},
		{Name: "LC09_L1TP_193028_20220118_20220118_02_T2", ID: "E9"},
	}

	outDir := t.TempDir()
	res, err := b.Download(context.Background(), records, outDir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Downloaded)
	// LC08 is ready on the first poll. LC09 is missing from the second and
	// arrives on the third.
	assert.EqualValues(t, 3, atomic.LoadInt32(&f.retrieves))
	assert.False(t, archive.Exists(filepath.Join(outDir, "Landsat", "LC08", "193028", "E0.tar")))
}

func TestLandsatBackend_SkipsExisting(t *testing.T) {
	f := newFakeUSGS(t, false)
	defer f.server.Close()

	outDir := t.TempDir()
	name := "LC08_L1TP_193028_20220110_20220123_02_T1"
	dest := filepath.Join(outDir, "Landsat", "LC08", "193028", name+".tar")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("done"), 0o644))

	res, err := newLandsatBackend(f).Download(context.Background(), []scene.Record{{Name: name, ID: "E8"}}, outDir)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Downloaded)
}

func TestLandsatBackend_NoCredentials(t *testing.T) {
	client := m2m.NewClient("http://127.0.0.1:1", time.Second, 0)
	b := NewLandsatBackend(client, testFetcher(), LandsatOptions{}, quietLogger())

	_, err := b.Search(context.Background(), landsatParams())
	assert.ErrorIs(t, err, ErrNoM2MCredentials)
}

func TestNewSet(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)

	set := NewSet(cfg, quietLogger())
	assert.Len(t, set, 1)
	assert.Equal(t, "cdse", set[config.SourceCDSE].Name())

	_, err = set.For(&config.CollectionConfig{ID: "landsat-c2-l1", Source: config.SourceM2M})
	assert.Error(t, err)

	cfg.M2M.Username = "user"
	cfg.M2M.Token = "token"
	set = NewSet(cfg, quietLogger())
	require.Len(t, set, 2)
	assert.Equal(t, "m2m", set[config.SourceM2M].Name())
}
