// Package stac holds the response documents of the scene search API and
// the result sets behind its paging. Core STAC types come from
// planetlabs/go-stac.
package stac

import (
	gostac "github.com/planetlabs/go-stac"

	"github.com/vpremier/data-download/internal/scene"
)

type (
	Item = gostac.Item
	Link = gostac.Link
)

// ItemCollection is one page of a deduplicated search. NumberMatched and
// Context describe the whole result set, Features only this page.
type ItemCollection struct {
	Type           string   `json:"type"`
	Features       []*Item  `json:"features"`
	Links          []*Link  `json:"links"`
	NumberMatched  *int     `json:"numberMatched,omitempty"`
	NumberReturned int      `json:"numberReturned"`
	Context        *Context `json:"context,omitempty"`

	// Dedup reports how many catalogue records each dedup stage removed.
	Dedup *scene.Summary `json:"dedup,omitempty"`
}

// Context follows the STAC context extension and adds the MGRS tiles or
// Landsat sensors seen across the kept scenes.
type Context struct {
	Returned int      `json:"returned"`
	Limit    int      `json:"limit,omitempty"`
	Matched  *int     `json:"matched,omitempty"`
	Tiles    []string `json:"tiles,omitempty"`
	Sensors  []string `json:"sensors,omitempty"`
}

// NewItemCollection wraps a page of items taken from a result set of
// matched items.
func NewItemCollection(page []*Item, matched, limit int) *ItemCollection {
	if page == nil {
		page = []*Item{}
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       page,
		Links:          []*Link{},
		NumberMatched:  &matched,
		NumberReturned: len(page),
		Context: &Context{
			Returned: len(page),
			Limit:    limit,
			Matched:  &matched,
		},
	}
}

func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}

// CollectionsList is the body of GET /collections.
type CollectionsList struct {
	Collections []*gostac.Collection `json:"collections"`
	Links       []*Link              `json:"links"`
}

func NewCollectionsList(collections []*gostac.Collection) *CollectionsList {
	return &CollectionsList{Collections: collections, Links: []*Link{}}
}

// NewCollection returns an empty collection document for a configured
// scene collection.
func NewCollection(id, title, description, version string) *gostac.Collection {
	return &gostac.Collection{
		Version:     version,
		Id:          id,
		Title:       title,
		Description: description,
		Links:       []*Link{},
		Assets:      map[string]*gostac.Asset{},
		Summaries:   map[string]any{},
	}
}

type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// LandingPage is the root catalog served at GET /.
type LandingPage struct {
	Type        string   `json:"type"`
	Id          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	StacVersion string   `json:"stac_version"`
	ConformsTo  []string `json:"conformsTo,omitempty"`
	Links       []*Link  `json:"links"`
}

func NewLandingPage(id, title, description, version string, conformsTo []string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		Id:          id,
		Title:       title,
		Description: description,
		StacVersion: version,
		ConformsTo:  conformsTo,
		Links:       []*Link{},
	}
}

func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}

// The search API has no filter or fields extension.
const (
	ConformanceCore           = "https://api.stacspec.org/v1.0.0/core"
	ConformanceItemSearch     = "https://api.stacspec.org/v1.0.0/item-search"
	ConformanceSort           = "https://api.stacspec.org/v1.0.0/item-search#sort"
	ConformanceOGCFeatCore    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core"
	ConformanceOGCFeatGeoJSON = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson"
)

func DefaultConformance() []string {
	return []string{
		ConformanceCore,
		ConformanceItemSearch,
		ConformanceSort,
		ConformanceOGCFeatCore,
		ConformanceOGCFeatGeoJSON,
	}
}
