package backend

import (
	"log/slog"

	"github.com/vpremier/data-download/internal/archive"
	"github.com/vpremier/data-download/internal/cdse"
	"github.com/vpremier/data-download/internal/config"
	"github.com/vpremier/data-download/internal/m2m"
)

// NewSet builds the backends the configuration allows. CDSE searches are
// anonymous, so the CDSE backend is always present; downloads from it need
// CDSE_USERNAME and CDSE_PASSWORD. The M2M backend needs an account for
// searching too and is left out without one.
func NewSet(cfg *config.Config, logger *slog.Logger) Set {
	fetcher := archive.NewFetcher(cfg.Download.Retries, cfg.Download.Backoff, cfg.Download.Timeout).
		WithLogger(logger)

	client := cdse.NewClient(cfg.CDSE.CatalogueURL, cfg.CDSE.DownloadURL, cfg.CDSE.Timeout).
		WithLogger(logger)
	if cfg.CDSE.HasCredentials() {
		tokens := cdse.NewTokenSource(cdse.Credentials{
			TokenURL: cfg.CDSE.TokenURL,
			ClientID: cfg.CDSE.ClientID,
			Username: cfg.CDSE.Username,
			Password: cfg.CDSE.Password,
		}, cfg.CDSE.TokenRefresh, nil).WithLogger(logger)
		client = client.WithTokenSource(tokens)
	}

	set := Set{
		config.SourceCDSE: NewSentinelBackend(client, fetcher, cfg.CDSE.PageSize, cfg.Download.Concurrency, logger),
	}

	if cfg.M2M.HasCredentials() {
		m2mClient := m2m.NewClient(cfg.M2M.BaseURL, cfg.M2M.Timeout, cfg.M2M.RequestsPerSecond).
			WithLogger(logger)
		set[config.SourceM2M] = NewLandsatBackend(m2mClient, fetcher, LandsatOptions{
			Username:     cfg.M2M.Username,
			Token:        cfg.M2M.Token,
			MaxResults:   cfg.M2M.MaxResults,
			PollInterval: cfg.M2M.PollInterval,
		}, logger)
	} else {
		logger.Debug("M2M credentials not set, Landsat Collection 2 search disabled")
	}

	return set
}
