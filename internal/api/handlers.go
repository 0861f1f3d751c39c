package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/planetlabs/go-stac"

	"github.com/vpremier/data-download/internal/backend"
	"github.com/vpremier/data-download/internal/config"
	intstac "github.com/vpremier/data-download/internal/stac"
	"github.com/vpremier/data-download/internal/translate"
)

// Handlers contains all HTTP handlers for the STAC API.
type Handlers struct {
	cfg         *config.Config
	backends    backend.Set
	translator  *translate.Translator
	collections *config.CollectionRegistry
	results     intstac.ResultStore
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(
	cfg *config.Config,
	backends backend.Set,
	translator *translate.Translator,
	collections *config.CollectionRegistry,
	results intstac.ResultStore,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		cfg:         cfg,
		backends:    backends,
		translator:  translator,
		collections: collections,
		results:     results,
		logger:      logger,
	}
}

// LandingPage returns the STAC API landing page (root catalog).
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	landing := intstac.NewLandingPage(
		"data-download",
		h.cfg.STAC.Title,
		h.cfg.STAC.Description,
		h.cfg.STAC.Version,
		intstac.DefaultConformance(),
	)

	landing.AddLink("self", baseURL+"/", "application/json")
	landing.AddLink("root", baseURL+"/", "application/json")
	landing.AddLink("conformance", baseURL+"/conformance", "application/json")
	landing.AddLink("data", baseURL+"/collections", "application/json")
	landing.AddLink("http://www.opengis.net/def/rel/ogc/1.0/queryables", baseURL+"/queryables", "application/schema+json")

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		landing.Links = append(landing.Links, &stac.Link{
			Rel:    "search",
			Href:   baseURL + "/search",
			Type:   "application/geo+json",
			Method: method,
		})
	}

	WriteJSON(w, http.StatusOK, landing)
}

// Conformance returns the conformance classes supported by this API.
// GET /conformance
func (h *Handlers) Conformance(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, &intstac.Conformance{
		ConformsTo: intstac.DefaultConformance(),
	})
}

// Collections returns the list of all available collections.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	baseURL := h.cfg.STAC.BaseURL

	configs := h.collections.All()
	collections := make([]*stac.Collection, 0, len(configs))
	for _, c := range configs {
		collections = append(collections, h.buildSTACCollection(c, baseURL))
	}

	response := intstac.NewCollectionsList(collections)
	response.Links = append(response.Links,
		&stac.Link{Rel: "self", Href: baseURL + "/collections", Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: "application/json"},
	)

	WriteJSON(w, http.StatusOK, response)
}

// Collection returns a single collection by ID.
// GET /collections/{collectionId}
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")
	if collectionID == "" {
		WriteBadRequest(w, "collection ID is required")
		return
	}

	c := h.collections.Get(collectionID)
	if c == nil {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", collectionID))
		return
	}

	WriteJSON(w, http.StatusOK, h.buildSTACCollection(c, h.cfg.STAC.BaseURL))
}

// Search runs a deduplicated search, or returns another page of an earlier
// one when a cursor is given.
// GET/POST /search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var (
		req *intstac.SearchRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = intstac.ParseSearchRequest(r)
	case http.MethodPost:
		defer r.Body.Close()
		req, err = intstac.ParseSearchRequestBody(r.Body)
	default:
		WriteBadRequest(w, "method not allowed")
		return
	}
	if err != nil {
		WriteInvalidParameter(w, fmt.Sprintf("invalid search request: %v", err))
		return
	}

	if err := intstac.ValidateSearchRequest(req); err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}
	limit := h.pageLimit(req.Limit)

	if req.Cursor != "" {
		h.searchPage(w, req.Cursor, limit)
		return
	}

	for _, s := range req.Sortby {
		if _, err := intstac.NormalizeSortField(s.Field); err != nil {
			WriteInvalidParameter(w, err.Error())
			return
		}
	}

	params, err := h.translator.ToBackendParams(req)
	if err != nil {
		switch {
		case errors.Is(err, translate.ErrCollectionNotFound):
			WriteNotFound(w, err.Error())
		default:
			WriteInvalidParameter(w, err.Error())
		}
		return
	}

	b, err := h.backends.For(params.Collection)
	if err != nil {
		h.logger.Warn("collection has no backend",
			slog.String("collection_id", params.Collection.ID),
			slog.String("error", err.Error()),
		)
		WriteUnavailable(w, err.Error())
		return
	}

	ctx := r.Context()
	result, err := b.Search(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "backend search failed",
			slog.String("collection_id", params.Collection.ID),
			slog.String("backend", b.Name()),
			slog.String("error", err.Error()),
		)
		WriteUpstreamError(w, "upstream search service error")
		return
	}

	items := h.translator.ToItems(result)
	if err := intstac.SortItems(items, req.Sortby); err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	queryParams := r.URL.Query()
	if r.Method == http.MethodPost {
		queryParams = req.ToQueryParams()
	}

	rs := h.translator.NewResultSet(result, items, queryParams)
	token, err := h.results.Store(rs)
	if err != nil {
		h.logger.Error("failed to store result set", slog.String("error", err.Error()))
		WriteInternalError(w, "failed to store search result")
		return
	}

	h.logger.InfoContext(ctx, "search complete",
		slog.String("collection_id", params.Collection.ID),
		slog.String("backend", b.Name()),
		slog.Int("records", len(result.Records)),
		slog.Int("items", len(items)),
	)

	h.writePage(w, rs, token, 0, limit)
}

// searchPage serves a page of a stored result set.
func (h *Handlers) searchPage(w http.ResponseWriter, encoded string, limit int) {
	cursor, err := intstac.DecodeCursor(encoded)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	rs, err := h.results.Retrieve(cursor.Token)
	switch {
	case errors.Is(err, intstac.ErrResultExpired):
		WriteError(w, http.StatusGone, ErrCodeGone, "search result expired, repeat the search")
		return
	case err != nil:
		WriteNotFound(w, "search result not found")
		return
	}

	h.writePage(w, rs, cursor.Token, cursor.Offset, limit)
}

func (h *Handlers) writePage(w http.ResponseWriter, rs *intstac.ResultSet, token string, offset, limit int) {
	page := intstac.Page(rs.Items, offset, limit)
	ic := h.translator.ToItemCollection(rs, page, limit)

	links := intstac.BuildPaginationLinks(intstac.PageInfo{
		BaseURL:     h.cfg.STAC.BaseURL + "/search",
		Token:       token,
		Offset:      offset,
		Limit:       limit,
		Total:       len(rs.Items),
		QueryParams: url.Values(rs.Params),
	})
	ic.Links = append(ic.Links, links...)

	WriteGeoJSON(w, http.StatusOK, ic)
}

// pageLimit applies the default and maximum page sizes.
func (h *Handlers) pageLimit(requested int) int {
	if requested == 0 {
		return h.cfg.Features.DefaultLimit
	}
	return min(requested, h.cfg.Features.MaxLimit)
}

// Health returns the health status of the service and the configured
// backends.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	backends := make([]string, 0, len(h.backends))
	for name, b := range h.backends {
		if b != nil {
			backends = append(backends, name)
		}
	}
	slices.Sort(backends)

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backends": backends,
	})
}

// buildSTACCollection converts a CollectionConfig to a STAC Collection.
func (h *Handlers) buildSTACCollection(cfg *config.CollectionConfig, baseURL string) *stac.Collection {
	collection := intstac.NewCollection(
		cfg.ID,
		cfg.Title,
		cfg.Description,
		h.cfg.STAC.Version,
	)

	collection.License = cfg.License

	if len(cfg.Providers) > 0 {
		collection.Providers = make([]*stac.Provider, len(cfg.Providers))
		for i, p := range cfg.Providers {
			collection.Providers[i] = &stac.Provider{
				Name:        p.Name,
				Description: p.Description,
				Roles:       p.Roles,
				Url:         p.URL,
			}
		}
	}

	collection.Extent = &stac.Extent{
		Spatial: &stac.SpatialExtent{
			Bbox: cfg.Extent.Spatial.BBox,
		},
		Temporal: &stac.TemporalExtent{
			Interval: cfg.Extent.Temporal.Interval,
		},
	}

	if cfg.Summaries != nil {
		collection.Summaries = cfg.Summaries
	}

	collectionURL := fmt.Sprintf("%s/collections/%s", baseURL, cfg.ID)
	collection.Links = append(collection.Links,
		&stac.Link{Rel: "self", Href: collectionURL, Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: "application/json"},
		&stac.Link{Rel: "parent", Href: baseURL + "/", Type: "application/json"},
		&stac.Link{
			Rel:  "http://www.opengis.net/def/rel/ogc/1.0/queryables",
			Href: collectionURL + "/queryables",
			Type: "application/schema+json",
		},
	)

	return collection
}
