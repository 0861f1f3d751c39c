package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalogue sources a collection can be served from.
const (
	SourceCDSE = "cdse"
	SourceM2M  = "m2m"
)

// CollectionConfig describes one searchable collection and how it maps onto
// the upstream catalogue.
type CollectionConfig struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Source      string         `json:"source"`
	CDSE        *CDSEMapping   `json:"cdse,omitempty"`
	M2M         *M2MMapping    `json:"m2m,omitempty"`
	Deduplicate bool           `json:"deduplicate,omitempty"`
	License     string         `json:"license"`
	Providers   []Provider     `json:"providers,omitempty"`
	Extent      Extent         `json:"extent"`
	Summaries   map[string]any `json:"summaries,omitempty"`
	Extensions  []string       `json:"stac_extensions,omitempty"`
}

// CDSEMapping selects products on the Copernicus OData catalogue. Exactly one
// of ProductType or CollectionName is set.
type CDSEMapping struct {
	// ProductType filters on the productType attribute, e.g. S2MSI1C.
	ProductType string `json:"product_type,omitempty"`
	// CollectionName filters on Collection/Name, e.g. LANDSAT-8-ESA.
	CollectionName string `json:"collection_name,omitempty"`
}

// Name returns the catalogue-side name of the mapping.
func (m *CDSEMapping) Name() string {
	if m.ProductType != "" {
		return m.ProductType
	}
	return m.CollectionName
}

// M2MMapping lists the Landsat sensors searched on USGS M2M.
type M2MMapping struct {
	Sensors []string `json:"sensors"`
}

// Provider represents a data provider in a STAC collection.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Extent defines the spatial and temporal extent of a collection.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent defines the bounding boxes for a collection.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent defines the time intervals for a collection.
type TemporalExtent struct {
	Interval [][]any `json:"interval"`
}

// CollectionRegistry holds all loaded collection configurations indexed by ID.
type CollectionRegistry struct {
	collections map[string]*CollectionConfig
}

// NewCollectionRegistry creates a new empty collection registry.
func NewCollectionRegistry() *CollectionRegistry {
	return &CollectionRegistry{
		collections: make(map[string]*CollectionConfig),
	}
}

// LoadCollections loads collection definitions from JSON files in the specified directory.
// Only files with a .json extension are processed.
func LoadCollections(collectionsDir string) (*CollectionRegistry, error) {
	registry := NewCollectionRegistry()

	info, err := os.Stat(collectionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access collections directory %q: %w", collectionsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collections path %q is not a directory", collectionsDir)
	}

	entries, err := os.ReadDir(collectionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections directory %q: %w", collectionsDir, err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !strings.HasSuffix(strings.ToLower(filename), ".json") {
			continue
		}

		filePath := filepath.Join(collectionsDir, filename)
		collection, err := loadCollectionFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection from %q: %w", filePath, err)
		}

		if err := registry.Add(collection); err != nil {
			return nil, fmt.Errorf("failed to add collection from %q: %w", filePath, err)
		}

		loadedCount++
	}

	if loadedCount == 0 {
		return nil, fmt.Errorf("no collection files found in %q", collectionsDir)
	}

	return registry, nil
}

func loadCollectionFile(filePath string) (*CollectionConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var collection CollectionConfig
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &collection, nil
}

// validateCollection checks that a collection configuration is valid.
func validateCollection(c *CollectionConfig) error {
	if c.ID == "" {
		return fmt.Errorf("collection ID is required")
	}

	if c.Title == "" {
		return fmt.Errorf("collection title is required")
	}

	if c.Description == "" {
		return fmt.Errorf("collection description is required")
	}

	switch c.Source {
	case SourceCDSE:
		if c.CDSE == nil || c.CDSE.Name() == "" {
			return fmt.Errorf("CDSE collection must specify a product type or collection name")
		}
		if c.CDSE.ProductType != "" && c.CDSE.CollectionName != "" {
			return fmt.Errorf("CDSE collection cannot set both product type and collection name")
		}
	case SourceM2M:
		if c.M2M == nil || len(c.M2M.Sensors) == 0 {
			return fmt.Errorf("M2M collection must specify at least one sensor")
		}
	default:
		return fmt.Errorf("collection source must be %q or %q, got %q", SourceCDSE, SourceM2M, c.Source)
	}

	if c.License == "" {
		return fmt.Errorf("collection license is required")
	}

	if len(c.Extent.Spatial.BBox) == 0 {
		return fmt.Errorf("collection must have at least one spatial bbox")
	}

	for i, bbox := range c.Extent.Spatial.BBox {
		if len(bbox) != 4 && len(bbox) != 6 {
			return fmt.Errorf("bbox[%d] must have 4 or 6 values, got %d", i, len(bbox))
		}
	}

	if len(c.Extent.Temporal.Interval) == 0 {
		return fmt.Errorf("collection must have at least one temporal interval")
	}

	for i, interval := range c.Extent.Temporal.Interval {
		if len(interval) != 2 {
			return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
		}
	}

	return nil
}

// Add validates and registers a collection.
// Returns an error if a collection with the same ID already exists.
func (r *CollectionRegistry) Add(collection *CollectionConfig) error {
	if collection == nil {
		return fmt.Errorf("cannot add nil collection")
	}

	if err := validateCollection(collection); err != nil {
		return fmt.Errorf("invalid collection configuration: %w", err)
	}

	if _, exists := r.collections[collection.ID]; exists {
		return fmt.Errorf("collection with ID %q already exists", collection.ID)
	}

	r.collections[collection.ID] = collection
	return nil
}

// Get retrieves a collection by ID.
// Returns nil if the collection does not exist.
func (r *CollectionRegistry) Get(id string) *CollectionConfig {
	return r.collections[id]
}

// Has checks if a collection with the given ID exists in the registry.
func (r *CollectionRegistry) Has(id string) bool {
	_, exists := r.collections[id]
	return exists
}

// Resolve finds a collection by ID or by its CDSE product type or
// collection name, so "S2MSI1C" and "sentinel-2-l1c" both work.
func (r *CollectionRegistry) Resolve(name string) *CollectionConfig {
	if c := r.Get(name); c != nil {
		return c
	}
	for _, c := range r.All() {
		if c.CDSE != nil && c.CDSE.Name() == name {
			return c
		}
	}
	return nil
}

// All returns all collections sorted by ID.
func (r *CollectionRegistry) All() []*CollectionConfig {
	collections := make([]*CollectionConfig, 0, len(r.collections))
	for _, collection := range r.collections {
		collections = append(collections, collection)
	}
	sort.Slice(collections, func(i, j int) bool {
		return collections[i].ID < collections[j].ID
	})
	return collections
}

// IDs returns all collection IDs in sorted order.
func (r *CollectionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.collections))
	for id := range r.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of collections in the registry.
func (r *CollectionRegistry) Count() int {
	return len(r.collections)
}

// FindBySource returns the collections served by the given catalogue.
func (r *CollectionRegistry) FindBySource(source string) []*CollectionConfig {
	var matches []*CollectionConfig
	for _, collection := range r.All() {
		if collection.Source == source {
			matches = append(matches, collection)
		}
	}
	return matches
}
