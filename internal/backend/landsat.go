package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vpremier/data-download/internal/archive"
	"github.com/vpremier/data-download/internal/m2m"
	"github.com/vpremier/data-download/internal/scene"
	"github.com/vpremier/data-download/pkg/geojson"
)

// LandsatBackend implements SearchBackend for USGS M2M Landsat Collection 2.
type LandsatBackend struct {
	client       *m2m.Client
	fetcher      *archive.Fetcher
	username     string
	token        string
	maxResults   int
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// LandsatOptions configures a LandsatBackend.
type LandsatOptions struct {
	Username     string
	Token        string
	MaxResults   int
	PollInterval time.Duration
	// MaxPolls bounds the download-retrieve loop. Zero means 120.
	MaxPolls int
}

// NewLandsatBackend creates a new M2M backend.
func NewLandsatBackend(client *m2m.Client, fetcher *archive.Fetcher, opts LandsatOptions, logger *slog.Logger) *LandsatBackend {
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 120
	}
	return &LandsatBackend{
		client:       client,
		fetcher:      fetcher,
		username:     opts.Username,
		token:        opts.Token,
		maxResults:   opts.MaxResults,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// Name returns the backend name.
func (b *LandsatBackend) Name() string {
	return "m2m"
}

// Search runs one scene-search per dataset and drops repeated display ids.
func (b *LandsatBackend) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	sensors, err := b.sensors(params)
	if err != nil {
		return nil, err
	}

	bbox := params.BBox
	if bbox == nil {
		bbox = geojson.WorldBBox
	}
	mbr, err := m2m.NewMBR(bbox)
	if err != nil {
		return nil, err
	}

	filter := &m2m.SceneFilter{
		SpatialFilter:     mbr,
		CloudCoverFilter:  &m2m.CloudCoverFilter{Min: 0, Max: params.MaxCloudCover},
		AcquisitionFilter: &m2m.AcquisitionFilter{Start: params.Start.Format(time.DateOnly), End: params.End.Format(time.DateOnly)},
	}

	var records []scene.Record
	err = b.session(ctx, func() error {
		var searched []string
		for _, sensor := range sensors {
			dataset := scene.LandsatDatasets[sensor]
			if slices.Contains(searched, dataset) {
				continue
			}
			searched = append(searched, dataset)

			res, err := b.client.SceneSearch(ctx, m2m.SceneSearchRequest{
				DatasetName: dataset,
				MaxResults:  b.maxResults,
				SceneFilter: filter,
			})
			if err != nil {
				return fmt.Errorf("scene search on %s failed: %w", dataset, err)
			}
			if res.TotalHits > res.RecordsReturned {
				b.logger.WarnContext(ctx, "scene search truncated",
					slog.String("dataset", dataset),
					slog.Int("returned", res.RecordsReturned),
					slog.Int("total_hits", res.TotalHits),
				)
			}
			for _, s := range res.Results {
				if !slices.Contains(sensors, sensorOf(s.DisplayID)) {
					continue
				}
				records = append(records, sceneToRecord(s, params.Collection.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records = scene.UniqueByName(records)

	result := &SearchResult{Collection: params.Collection.ID, Records: records}
	for _, r := range records {
		if id, err := scene.ParseLandsatID(r.Name); err == nil {
			result.Sensors = appendUnique(result.Sensors, id.Sensor)
			result.Tiles = appendUnique(result.Tiles, id.PathRow)
		}
	}

	b.logger.InfoContext(ctx, "M2M search completed",
		slog.Int("scenes", len(records)),
		slog.Any("sensors", result.Sensors),
	)
	return result, nil
}

func (b *LandsatBackend) sensors(params *SearchParams) ([]string, error) {
	offered := scene.LandsatSensors
	if params.Collection.M2M != nil && len(params.Collection.M2M.Sensors) > 0 {
		offered = params.Collection.M2M.Sensors
	}
	if len(params.Sensors) == 0 {
		return offered, nil
	}

	var out []string
	for _, s := range params.Sensors {
		if !slices.Contains(offered, s) {
			return nil, fmt.Errorf("sensor %q not offered by %s (allowed: %v)", s, params.Collection.ID, offered)
		}
		out = appendUnique(out, s)
	}
	return out, nil
}

// Download stages the archives through download-request, polls
// download-retrieve while they are being prepared, and fetches each URL.
func (b *LandsatBackend) Download(ctx context.Context, records []scene.Record, outDir string) (archive.Result, error) {
	var total archive.Result

	bySensor := map[string][]scene.Record{}
	var sensors []string
	for _, r := range records {
		dest, err := archive.LandsatPath(outDir, r.Name)
		if err != nil {
			b.logger.WarnContext(ctx, "skipping record with malformed display id", slog.String("name", r.Name))
			total.Failed = append(total.Failed, &archive.JobError{Name: r.Name, Err: err})
			continue
		}
		if archive.Exists(dest) {
			total.Skipped++
			continue
		}
		s := sensorOf(r.Name)
		if _, ok := bySensor[s]; !ok {
			sensors = append(sensors, s)
		}
		bySensor[s] = append(bySensor[s], r)
	}
	slices.Sort(sensors)

	b.logger.InfoContext(ctx, "landsat download plan",
		slog.Int("already_downloaded", total.Skipped),
		slog.Int("to_download", len(records)-total.Skipped-len(total.Failed)),
	)

	if len(sensors) == 0 {
		return total, nil
	}

	err := b.session(ctx, func() error {
		for _, sensor := range sensors {
			res, err := b.downloadSensor(ctx, sensor, bySensor[sensor], outDir)
			total.Add(res)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return total, err
}

func (b *LandsatBackend) downloadSensor(ctx context.Context, sensor string, group []scene.Record, outDir string) (archive.Result, error) {
	var res archive.Result

	dataset, ok := scene.LandsatDatasets[sensor]
	if !ok {
		b.logger.WarnContext(ctx, "unknown satellite id, skipping", slog.String("sensor", sensor))
		return res, nil
	}

	byEntity := make(map[string]scene.Record, len(group))
	byDisplay := make(map[string]scene.Record, len(group))
	entityIDs := make([]string, 0, len(group))
	for _, r := range group {
		byEntity[r.ID] = r
		byDisplay[r.Name] = r
		entityIDs = append(entityIDs, r.ID)
	}

	options, err := b.client.DownloadOptions(ctx, dataset, entityIDs)
	if err != nil {
		return res, fmt.Errorf("download-options for %s failed: %w", sensor, err)
	}

	var specs []m2m.DownloadSpec
	for _, o := range options {
		if o.Available && o.DownloadSystem == "ls_zip" {
			specs = append(specs, m2m.DownloadSpec{EntityID: o.EntityID, ProductID: o.ID})
		}
	}
	if len(specs) == 0 {
		b.logger.WarnContext(ctx, "no available products", slog.String("sensor", sensor))
		return res, nil
	}

	label := fmt.Sprintf("download-%s-%s", sensor, uuid.NewString())
	req, err := b.client.DownloadRequest(ctx, specs, label)
	if err != nil {
		return res, fmt.Errorf("download-request for %s failed: %w", sensor, err)
	}

	fetch := func(downloads []m2m.Download) {
		var jobs []archive.Job
		for _, d := range downloads {
			rec, ok := byEntity[d.EntityID]
			if !ok {
				rec, ok = byDisplay[d.DisplayID]
			}
			if !ok {
				b.logger.WarnContext(ctx, "download does not match a requested scene",
					slog.Int64("download_id", d.DownloadID),
					slog.String("entity_id", d.EntityID),
				)
				continue
			}
			dest, _ := archive.LandsatPath(outDir, rec.Name)
			url := d.URL
			jobs = append(jobs, archive.Job{
				Name: rec.Name,
				Dest: dest,
				Request: func(ctx context.Context) (*http.Request, error) {
					return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				},
			})
		}
		r, _ := b.fetcher.Run(ctx, jobs, 1)
		res.Add(r)
	}

	if len(req.PreparingDownloads) == 0 {
		b.logger.InfoContext(ctx, "all downloads available immediately", slog.String("sensor", sensor))
		fetch(req.AvailableDownloads)
		return res, ctx.Err()
	}

	want := len(specs) - len(req.Failed)
	done := map[string]bool{}
	for poll := 0; len(done) < want; poll++ {
		if poll >= b.maxPolls {
			return res, fmt.Errorf("downloads for %s still preparing after %d polls", sensor, poll)
		}

		ret, err := b.client.DownloadRetrieve(ctx, label)
		if err != nil {
			return res, fmt.Errorf("download-retrieve for %s failed: %w", sensor, err)
		}

		var ready []m2m.Download
		for _, d := range ret.Available {
			key := d.Key()
			if done[key] || !req.Tracked(key) {
				continue
			}
			done[key] = true
			ready = append(ready, d)
		}
		fetch(ready)

		remaining := want - len(done)
		if remaining > 0 {
			b.logger.InfoContext(ctx, "downloads still preparing",
				slog.String("sensor", sensor),
				slog.Int("remaining", remaining),
				slog.Duration("wait", b.pollInterval),
			)
			if err := b.sleep(ctx, b.pollInterval); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// session logs in, runs fn and logs out.
func (b *LandsatBackend) session(ctx context.Context, fn func() error) error {
	if b.username == "" || b.token == "" {
		return ErrNoM2MCredentials
	}
	if err := b.client.Login(ctx, b.username, b.token); err != nil {
		return fmt.Errorf("M2M login failed: %w", err)
	}
	defer func() {
		if err := b.client.Logout(context.WithoutCancel(ctx)); err != nil {
			b.logger.WarnContext(ctx, "M2M logout failed", slog.String("error", err.Error()))
		}
	}()
	return fn()
}

// ErrNoM2MCredentials is returned when the M2M username or token is missing.
var ErrNoM2MCredentials = errors.New("M2M credentials not configured")

func sceneToRecord(s m2m.Scene, collection string) scene.Record {
	return scene.Record{
		Name:         s.DisplayID,
		ID:           s.EntityID,
		Footprint:    s.SpatialCoverage,
		CloudCover:   s.CloudCover.Ptr(),
		ContentStart: s.TemporalCoverage.Start(),
		Collection:   collection,
		Online:       true,
	}
}

func sensorOf(displayID string) string {
	if len(displayID) < 4 {
		return ""
	}
	return displayID[:4]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
