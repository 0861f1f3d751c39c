// Package translate converts between STAC search requests, backend queries
// and STAC items.
package translate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/cdse"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/scene"
	"github.com/vpremier/data-download/internal/stac"
)

// Translator handles conversion between STAC requests and the backends.
type Translator struct {
	cfg         *config.Config
	collections *config.CollectionRegistry
	logger      *slog.Logger
	now         func() time.Time
}

// NewTranslator creates a new translator instance.
func NewTranslator(cfg *config.Config, collections *config.CollectionRegistry, logger *slog.Logger) *Translator {
	return &Translator{
		cfg:         cfg,
		collections: collections,
		logger:      logger,
		now:         time.Now,
	}
}

// ToBackendParams converts a validated search request into backend query
// parameters. Dedup switches left unset in the request fall back to the
// DEDUP_* configuration.
func (t *Translator) ToBackendParams(req *stac.SearchRequest) (*backend.SearchParams, error) {
	if len(req.Collections) != 1 {
		return nil, fmt.Errorf("%w: exactly one collection must be given", ErrCollectionNotFound)
	}
	col := t.collections.Resolve(req.Collections[0])
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, req.Collections[0])
	}

	bbox, err := SearchBBox(req.BBox, req.Intersects)
	if err != nil {
		t.logger.Error("failed to read spatial filter", slog.String("error", err.Error()))
		return nil, err
	}

	start, end, err := SearchWindow(req.DateTime, t.now())
	if err != nil {
		t.logger.Error("failed to parse datetime", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateTime, err)
	}

	cloud := float64(config.DefaultMaxCloudCover)
	if req.MaxCloudCover != nil {
		cloud = *req.MaxCloudCover
	}

	return &backend.SearchParams{
		Collection:    col,
		BBox:          bbox,
		Start:         start,
		End:           end,
		MaxCloudCover: cloud,
		Tile:          req.Tile,
		Sensors:       req.Sensors,
		Dedup:         t.dedupOptions(req),
	}, nil
}

func (t *Translator) dedupOptions(req *stac.SearchRequest) scene.Options {
	opts := t.cfg.Dedup.Options()
	if req.FilterBaseline != nil {
		opts.FilterBaseline = *req.FilterBaseline
	}
	if req.FilterFootprint != nil {
		opts.FilterFootprint = *req.FilterFootprint
	}
	if len(req.Orbits) > 0 {
		opts.RelativeOrbits = req.Orbits
	}
	if req.Tolerance != nil {
		opts.Tolerance = *req.Tolerance
	}
	return opts
}

// ToItems converts backend records to STAC items. Records that cannot be
// translated are logged and skipped.
func (t *Translator) ToItems(res *backend.SearchResult) []*stac.Item {
	col := t.collections.Get(res.Collection)

	items := make([]*stac.Item, 0, len(res.Records))
	for i := range res.Records {
		rec := &res.Records[i]

		href := ""
		if col != nil && col.Source == config.SourceCDSE && rec.ID != "" {
			href = cdse.ProductURL(t.cfg.CDSE.DownloadURL, rec.ID)
		}

		item, err := RecordToItem(rec, res.Collection, t.cfg.STAC.BaseURL, t.cfg.STAC.Version, href)
		if err != nil {
			t.logger.Warn("failed to translate record",
				slog.String("name", rec.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

// NewResultSet bundles a translated search result for paging.
func (t *Translator) NewResultSet(res *backend.SearchResult, items []*stac.Item, params map[string][]string) *stac.ResultSet {
	return &stac.ResultSet{
		Collection: res.Collection,
		Items:      items,
		Summary:    res.Summary,
		Tiles:      res.Tiles,
		Sensors:    res.Sensors,
		Params:     params,
	}
}

// ToItemCollection builds the response for one page of a result set.
func (t *Translator) ToItemCollection(rs *stac.ResultSet, page []*stac.Item, limit int) *stac.ItemCollection {
	ic := stac.NewItemCollection(page, len(rs.Items), limit)
	ic.Context.Tiles = rs.Tiles
	ic.Context.Sensors = rs.Sensors
	ic.Dedup = rs.Summary

	if baseURL := t.cfg.STAC.BaseURL; baseURL != "" {
		ic.AddLink("self", baseURL+"/search", "application/geo+json")
		ic.AddLink("root", baseURL, "application/json")
	}
	return ic
}
