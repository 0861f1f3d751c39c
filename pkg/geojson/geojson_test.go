package geojson

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func squareGeometry(t *testing.T) *Geometry {
	t.Helper()
	coords := [][][]float64{
		{{-122.5, 37.8}, {-122.4, 37.8}, {-122.4, 37.9}, {-122.5, 37.9}, {-122.5, 37.8}},
	}
	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		t.Fatalf("marshal coordinates: %v", err)
	}
	return &Geometry{Type: "Polygon", Coordinates: coordsJSON}
}

func TestPolygon(t *testing.T) {
	g := squareGeometry(t)

	result, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}

	if len(result) != 1 || len(result[0]) != 5 {
		t.Errorf("Polygon() structure incorrect")
	}
}

func TestPolygon_WrongType(t *testing.T) {
	g := &Geometry{Type: "Point", Coordinates: json.RawMessage(`[1, 2]`)}

	if _, err := g.Polygon(); err == nil {
		t.Error("Polygon() should return error for non-Polygon geometry")
	}
}

func TestMultiPolygon(t *testing.T) {
	coords := [][][][]float64{
		{
			{{-122.4, 37.8}, {-122.5, 37.8}, {-122.5, 37.9}, {-122.4, 37.9}, {-122.4, 37.8}},
		},
		{
			{{-123.4, 38.8}, {-123.5, 38.8}, {-123.5, 38.9}, {-123.4, 38.9}, {-123.4, 38.8}},
		},
	}
	coordsJSON, _ := json.Marshal(coords)
	g := &Geometry{
		Type:        "MultiPolygon",
		Coordinates: coordsJSON,
	}

	result, err := g.MultiPolygon()
	if err != nil {
		t.Fatalf("MultiPolygon() error: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("MultiPolygon() length = %d, want 2", len(result))
	}
}

func TestIsAreal(t *testing.T) {
	tests := []struct {
		name string
		g    *Geometry
		want bool
	}{
		{"nil", nil, false},
		{"point", &Geometry{Type: "Point"}, false},
		{"polygon", &Geometry{Type: "Polygon"}, true},
		{"multipolygon", &Geometry{Type: "MultiPolygon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.IsAreal(); got != tt.want {
				t.Errorf("IsAreal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeBBox_Polygon(t *testing.T) {
	bbox, err := ComputeBBox(squareGeometry(t))
	if err != nil {
		t.Fatalf("ComputeBBox() error: %v", err)
	}

	expected := []float64{-122.5, 37.8, -122.4, 37.9}
	if !floatSlicesEqual(bbox, expected) {
		t.Errorf("ComputeBBox() = %v, want %v", bbox, expected)
	}
}

func TestComputeBBox_MultiPolygon(t *testing.T) {
	coords := [][][][]float64{
		{
			{{-122.5, 37.8}, {-122.4, 37.8}, {-122.4, 37.9}, {-122.5, 37.9}, {-122.5, 37.8}},
		},
		{
			{{-123.5, 38.8}, {-123.4, 38.8}, {-123.4, 38.9}, {-123.5, 38.9}, {-123.5, 38.8}},
		},
	}
	coordsJSON, _ := json.Marshal(coords)
	g := &Geometry{
		Type:        "MultiPolygon",
		Coordinates: coordsJSON,
	}

	bbox, err := g.BBox()
	if err != nil {
		t.Fatalf("BBox() error: %v", err)
	}

	// Should span both polygons
	expected := []float64{-123.5, 37.8, -122.4, 38.9}
	if !floatSlicesEqual(bbox, expected) {
		t.Errorf("BBox() = %v, want %v", bbox, expected)
	}
}

func TestComputeBBox_NilGeometry(t *testing.T) {
	if _, err := ComputeBBox(nil); err == nil {
		t.Error("ComputeBBox() should return error for nil geometry")
	}
}

func TestComputeBBox_EmptyPolygon(t *testing.T) {
	g := &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[]`)}

	if _, err := ComputeBBox(g); err == nil {
		t.Error("ComputeBBox() should return error for empty polygon")
	}
}

func TestNewPolygonFromBBox(t *testing.T) {
	bbox := []float64{-122.5, 37.8, -122.4, 37.9}

	g, err := NewPolygonFromBBox(bbox)
	if err != nil {
		t.Fatalf("NewPolygonFromBBox() error: %v", err)
	}

	if g.Type != "Polygon" {
		t.Errorf("NewPolygonFromBBox() Type = %s, want Polygon", g.Type)
	}

	coords, err := g.Polygon()
	if err != nil {
		t.Fatalf("Failed to parse created polygon: %v", err)
	}

	if len(coords) != 1 || len(coords[0]) != 5 {
		t.Errorf("NewPolygonFromBBox() created invalid polygon structure")
	}

	computedBBox, err := ComputeBBox(g)
	if err != nil {
		t.Fatalf("ComputeBBox() error: %v", err)
	}

	if !floatSlicesEqual(computedBBox, bbox) {
		t.Errorf("Computed bbox %v doesn't match original %v", computedBBox, bbox)
	}
}

func TestNewPolygonFromBBox_InvalidInput(t *testing.T) {
	tests := map[string][]float64{
		"three values": {-122.5, 37.8, -122.4},
		"inverted":     {10, 10, 0, 0},
	}

	for name, bbox := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewPolygonFromBBox(bbox); err == nil {
				t.Error("NewPolygonFromBBox() should return error for invalid bbox")
			}
		})
	}
}

func TestToWKT_Polygon(t *testing.T) {
	wkt, err := ToWKT(squareGeometry(t))
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}

	expected := "POLYGON((-122.5 37.8,-122.4 37.8,-122.4 37.9,-122.5 37.9,-122.5 37.8))"
	if wkt != expected {
		t.Errorf("ToWKT() = %s, want %s", wkt, expected)
	}
}

func TestToWKT_World(t *testing.T) {
	g, err := NewPolygonFromBBox(WorldBBox)
	if err != nil {
		t.Fatalf("NewPolygonFromBBox() error: %v", err)
	}

	wkt, err := ToWKT(g)
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}

	expected := "POLYGON((-180 -90,180 -90,180 90,-180 90,-180 -90))"
	if wkt != expected {
		t.Errorf("ToWKT() = %s, want %s", wkt, expected)
	}
}

func TestToWKT_NilGeometry(t *testing.T) {
	if _, err := ToWKT(nil); err == nil {
		t.Error("ToWKT() should return error for nil geometry")
	}
}

func TestToWKT_UnsupportedType(t *testing.T) {
	g := &Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[0,0],[1,1]]`)}

	_, err := ToWKT(g)
	if err == nil {
		t.Fatal("ToWKT() should return error for LineString")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFromWKT(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantBBox []float64
	}{
		{
			name:     "plain polygon",
			input:    "POLYGON((10 40,11 40,11 41,10 41,10 40))",
			wantType: "Polygon",
			wantBBox: []float64{10, 40, 11, 41},
		},
		{
			name:     "odata geography footprint",
			input:    "geography'SRID=4326;POLYGON ((10 40, 11 40, 11 41, 10 41, 10 40))'",
			wantType: "Polygon",
			wantBBox: []float64{10, 40, 11, 41},
		},
		{
			name:     "multipolygon with whitespace",
			input:    "  MULTIPOLYGON(((0 0,1 0,1 1,0 1,0 0)),((5 5,6 5,6 6,5 6,5 5)))  ",
			wantType: "MultiPolygon",
			wantBBox: []float64{0, 0, 6, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := FromWKT(tt.input)
			if err != nil {
				t.Fatalf("FromWKT() error: %v", err)
			}
			if g.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", g.Type, tt.wantType)
			}
			bbox, err := g.BBox()
			if err != nil {
				t.Fatalf("BBox() error: %v", err)
			}
			if !floatSlicesEqual(bbox, tt.wantBBox) {
				t.Errorf("BBox() = %v, want %v", bbox, tt.wantBBox)
			}
		})
	}
}

func TestFromWKT_InvalidFormat(t *testing.T) {
	for _, input := range []string{"", "   ", "CIRCLE(0 0, 1)", "geography'SRID=4326;'"} {
		if _, err := FromWKT(input); err == nil {
			t.Errorf("FromWKT(%q) should return error", input)
		}
	}
}

func TestParseAOI(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []float64
	}{
		{
			name: "feature collection",
			doc: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[10,45],[11,45],[11,46],[10,46],[10,45]]]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[12.5,44.5]}}
			]}`,
			want: []float64{10, 44.5, 12.5, 46},
		},
		{
			name: "single feature",
			doc:  `{"type":"Feature","properties":{"name":"basin"},"geometry":{"type":"Polygon","coordinates":[[[-3.5,36.9],[-2.8,36.9],[-2.8,37.3],[-3.5,37.3],[-3.5,36.9]]]}}`,
			want: []float64{-3.5, 36.9, -2.8, 37.3},
		},
		{
			name: "bare geometry",
			doc:  `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,1],[0,1],[0,0]]]}`,
			want: []float64{0, 0, 2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAOI([]byte(tt.doc))
			if err != nil {
				t.Fatalf("ParseAOI() error: %v", err)
			}
			if !floatSlicesEqual(got, tt.want) {
				t.Errorf("ParseAOI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAOI_Errors(t *testing.T) {
	docs := map[string]string{
		"not json":           `nope`,
		"missing type":       `{"features":[]}`,
		"empty collection":   `{"type":"FeatureCollection","features":[]}`,
		"feature no geometry": `{"type":"Feature","properties":{},"geometry":null}`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAOI([]byte(doc)); err == nil {
				t.Error("ParseAOI() should return error")
			}
		})
	}
}

func TestLoadAOI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoi.geojson")
	doc := `{"type":"Polygon","coordinates":[[[7,46],[8,46],[8,47],[7,47],[7,46]]]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write AOI: %v", err)
	}

	bbox, err := LoadAOI(path)
	if err != nil {
		t.Fatalf("LoadAOI() error: %v", err)
	}
	if !floatSlicesEqual(bbox, []float64{7, 46, 8, 47}) {
		t.Errorf("LoadAOI() = %v", bbox)
	}

	if _, err := LoadAOI(filepath.Join(t.TempDir(), "missing.geojson")); err == nil {
		t.Error("LoadAOI() should fail for a missing file")
	}
}

// Helper function to compare float slices with tolerance
func floatSlicesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	const epsilon = 1e-9
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}
