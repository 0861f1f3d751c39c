package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vpremier/data-download/internal/archive"
	"github.com/vpremier/data-download/internal/cdse"
	"github.com/vpremier/data-download/internal/scene"
	"github.com/vpremier/data-download/pkg/geojson"
)

// SentinelBackend implements SearchBackend for the CDSE OData catalogue.
// Besides Sentinel-2 it serves the other CDSE collections (Sentinel-3
// SYN and the ESA Landsat archive).
type SentinelBackend struct {
	client      *cdse.Client
	fetcher     *archive.Fetcher
	pageSize    int
	concurrency int
	logger      *slog.Logger
}

// NewSentinelBackend creates a new CDSE backend.
func NewSentinelBackend(client *cdse.Client, fetcher *archive.Fetcher, pageSize, concurrency int, logger *slog.Logger) *SentinelBackend {
	return &SentinelBackend{
		client:      client,
		fetcher:     fetcher,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Name returns the backend name.
func (b *SentinelBackend) Name() string {
	return "cdse"
}

// Search queries the catalogue and, for Sentinel-2 collections, removes
// duplicate scenes.
func (b *SentinelBackend) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	col := params.Collection
	if col.CDSE == nil {
		return nil, fmt.Errorf("collection %q has no CDSE mapping", col.ID)
	}

	area, err := areaWKT(params.BBox)
	if err != nil {
		return nil, err
	}

	query := cdse.SearchParams{
		ProductType:      col.CDSE.ProductType,
		CollectionName:   col.CDSE.CollectionName,
		Start:            params.Start,
		End:              params.End,
		MaxCloudCover:    params.MaxCloudCover,
		Area:             area,
		Tile:             params.Tile,
		Top:              b.pageSize,
		ExpandAttributes: true,
	}

	b.logger.InfoContext(ctx, "using data collection",
		slog.String("collection", col.ID),
		slog.String("catalogue_name", col.CDSE.Name()),
	)

	products, err := b.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CDSE search failed: %w", err)
	}

	records := make([]scene.Record, 0, len(products))
	for i := range products {
		records = append(records, productToRecord(&products[i], col.ID))
	}

	result := &SearchResult{Collection: col.ID}
	if col.Deduplicate && len(records) > 0 {
		kept, summary := scene.Deduplicate(records, params.Dedup, b.logger)
		records = kept
		result.Summary = &summary
	}
	result.Records = records

	for _, r := range records {
		if id, err := scene.ParseIdentifier(r.Name); err == nil {
			result.Tiles = appendUnique(result.Tiles, id.Tile)
		}
	}

	b.logger.InfoContext(ctx, "CDSE search completed",
		slog.String("collection", col.ID),
		slog.Int("found", len(products)),
		slog.Int("kept", len(records)),
	)

	return result, nil
}

// Download fetches the product archives with a bearer token that is
// renewed as needed.
func (b *SentinelBackend) Download(ctx context.Context, records []scene.Record, outDir string) (archive.Result, error) {
	jobs := make([]archive.Job, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		jobs = append(jobs, archive.Job{
			Name: rec.Name,
			Dest: archive.SentinelPath(outDir, rec),
			Request: func(ctx context.Context) (*http.Request, error) {
				return b.client.NewDownloadRequest(ctx, id)
			},
			Unauthorized: b.client.InvalidateToken,
		})
	}
	return b.fetcher.Run(ctx, jobs, b.concurrency)
}

func productToRecord(p *cdse.Product, collection string) scene.Record {
	return scene.Record{
		Name:         p.Name,
		ID:           p.ID,
		Footprint:    p.Geometry(),
		CloudCover:   p.CloudCover(),
		ContentStart: p.ContentDate.Start,
		Collection:   collection,
		Size:         p.ContentLength,
		Online:       p.Online,
	}
}

// areaWKT turns a bbox into the polygon used by the Intersects filter.
func areaWKT(bbox []float64) (string, error) {
	if bbox == nil {
		bbox = geojson.WorldBBox
	}
	poly, err := geojson.NewPolygonFromBBox(bbox)
	if err != nil {
		return "", fmt.Errorf("invalid bbox: %w", err)
	}
	return geojson.ToWKT(poly)
}
