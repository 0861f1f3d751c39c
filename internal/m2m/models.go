package m2m

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vpremier/data-download/pkg/geojson"
)

// envelope wraps every M2M response.
type envelope struct {
	RequestID    int64           `json:"requestId"`
	Version      string          `json:"version"`
	Data         json.RawMessage `json:"data"`
	ErrorCode    *string         `json:"errorCode"`
	ErrorMessage *string         `json:"errorMessage"`
}

// Coordinate is a lat/lon pair as used by spatial filters.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SpatialFilter is a minimum bounding rectangle filter.
type SpatialFilter struct {
	FilterType string     `json:"filterType"`
	LowerLeft  Coordinate `json:"lowerLeft"`
	UpperRight Coordinate `json:"upperRight"`
}

// NewMBR builds an "mbr" spatial filter from a [west, south, east, north] box.
func NewMBR(bbox []float64) (*SpatialFilter, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values, got %d", len(bbox))
	}
	return &SpatialFilter{
		FilterType: "mbr",
		LowerLeft:  Coordinate{Latitude: bbox[1], Longitude: bbox[0]},
		UpperRight: Coordinate{Latitude: bbox[3], Longitude: bbox[2]},
	}, nil
}

// CloudCoverFilter bounds scene cloud cover in percent.
type CloudCoverFilter struct {
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	IncludeUnknown bool    `json:"includeUnknown"`
}

// AcquisitionFilter bounds the acquisition date. Dates use YYYY-MM-DD.
type AcquisitionFilter struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SceneFilter groups the scene-search filters.
type SceneFilter struct {
	SpatialFilter     *SpatialFilter     `json:"spatialFilter,omitempty"`
	AcquisitionFilter *AcquisitionFilter `json:"acquisitionFilter,omitempty"`
	CloudCoverFilter  *CloudCoverFilter  `json:"cloudCoverFilter,omitempty"`
}

// SceneSearchRequest is the scene-search payload.
type SceneSearchRequest struct {
	DatasetName    string       `json:"datasetName"`
	MaxResults     int          `json:"maxResults,omitempty"`
	StartingNumber int          `json:"startingNumber,omitempty"`
	SceneFilter    *SceneFilter `json:"sceneFilter,omitempty"`
}

// SceneSearchResult is the data part of a scene-search response.
type SceneSearchResult struct {
	Results         []Scene `json:"results"`
	RecordsReturned int     `json:"recordsReturned"`
	TotalHits       int     `json:"totalHits"`
	NextRecord      int     `json:"nextRecord"`
}

// Scene is one scene-search hit.
type Scene struct {
	EntityID         string            `json:"entityId"`
	DisplayID        string            `json:"displayId"`
	CloudCover       FlexFloat         `json:"cloudCover"`
	PublishDate      string            `json:"publishDate,omitempty"`
	TemporalCoverage *TemporalCoverage `json:"temporalCoverage,omitempty"`
	SpatialCoverage  *geojson.Geometry `json:"spatialCoverage,omitempty"`
}

// TemporalCoverage is the acquisition interval of a scene.
type TemporalCoverage struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Start parses the acquisition start. M2M uses a space separated timestamp.
func (t *TemporalCoverage) Start() time.Time {
	if t == nil {
		return time.Time{}
	}
	return parseM2MTime(t.StartDate)
}

func parseM2MTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05-07", "2006-01-02 15:04:05", time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FlexFloat decodes a number that M2M may send as a JSON number, a string
// or null.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	f.Value, f.Valid = v, true
	return nil
}

// Ptr returns the value or nil when absent.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// DownloadOption is one entry of download-options.
type DownloadOption struct {
	ID             string `json:"id"`
	EntityID       string `json:"entityId"`
	DisplayID      string `json:"displayId"`
	ProductName    string `json:"productName"`
	Available      bool   `json:"available"`
	DownloadSystem string `json:"downloadSystem"`
	Filesize       int64  `json:"filesize"`
}

// DownloadSpec selects one product of one entity in download-request.
type DownloadSpec struct {
	EntityID  string `json:"entityId"`
	ProductID string `json:"productId"`
}

// Download is a prepared or available download.
type Download struct {
	DownloadID int64  `json:"downloadId"`
	EntityID   string `json:"entityId,omitempty"`
	DisplayID  string `json:"displayId,omitempty"`
	ProductID  string `json:"productId,omitempty"`
	URL        string `json:"url"`
	Status     string `json:"statusText,omitempty"`
}

// Key is the download id as a string, matching the keys of IDSet.
func (d Download) Key() string {
	return strconv.FormatInt(d.DownloadID, 10)
}

// DownloadRequestResult is the data part of download-request.
type DownloadRequestResult struct {
	AvailableDownloads []Download        `json:"availableDownloads"`
	PreparingDownloads []Download        `json:"preparingDownloads"`
	DuplicateProducts  IDSet             `json:"duplicateProducts"`
	NewRecords         IDSet             `json:"newRecords"`
	NumInvalidScenes   int               `json:"numInvalidScenes"`
	Failed             []json.RawMessage `json:"failed"`
}

// Tracked reports whether the download id belongs to this request.
func (r *DownloadRequestResult) Tracked(id string) bool {
	return r.NewRecords.Has(id) || r.DuplicateProducts.Has(id)
}

// DownloadRetrieveResult is the data part of download-retrieve.
type DownloadRetrieveResult struct {
	Available []Download `json:"available"`
	Requested []Download `json:"requested"`
	EulaCount int        `json:"eulas,omitempty"`
}

// IDSet holds download ids. M2M sends it either as an object keyed by id
// or as an array, and an empty one as [].
type IDSet map[string]struct{}

// UnmarshalJSON implements json.Unmarshaler.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	*s = IDSet{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for k := range obj {
			(*s)[k] = struct{}{}
		}
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		for _, raw := range arr {
			(*s)[strings.Trim(string(bytes.TrimSpace(raw)), `"`)] = struct{}{}
		}
	default:
		return fmt.Errorf("unexpected id set %s", data)
	}
	return nil
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
