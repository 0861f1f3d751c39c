package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Queryables returns the properties /search can filter on.
// GET /queryables
// GET /collections/{collectionId}/queryables
func (h *Handlers) Queryables(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")

	title := "Queryables for scene search"
	id := h.cfg.STAC.BaseURL + "/queryables"

	if collectionID != "" {
		if !h.collections.Has(collectionID) {
			WriteNotFound(w, "collection not found")
			return
		}
		title = "Queryables for " + collectionID
		id = h.cfg.STAC.BaseURL + "/collections/" + collectionID + "/queryables"
	}

	properties := map[string]any{
		"datetime": map[string]any{
			"description": "Date or datetime interval, required",
			"type":        "string",
			"format":      "date-time",
		},
		"bbox": map[string]any{
			"description": "Bounding box [west, south, east, north]",
			"type":        "array",
			"minItems":    4,
			"maxItems":    6,
			"items":       map[string]any{"type": "number"},
		},
		"intersects": map[string]any{
			"description": "GeoJSON geometry whose bounds are searched",
			"$ref":        "https://geojson.org/schema/Geometry.json",
		},
		"eo:cloud_cover": map[string]any{
			"description": "Maximum cloud cover in percent, sent as max_cc",
			"type":        "number",
			"minimum":     0,
			"maximum":     100,
		},
		"s2:mgrs_tile": map[string]any{
			"description": "MGRS tile such as T32TNS, sent as tile",
			"type":        "string",
			"pattern":     "^T?[0-9]{2}[A-Z]{3}$",
		},
		"sat:relative_orbit": map[string]any{
			"description": "Relative orbit token to keep, sent as orbits=R022,R065",
			"type":        "string",
			"pattern":     "^R[0-9]{3}$",
		},
		"landsat:sensor": map[string]any{
			"description": "Landsat sensors to search, sent as sensors=LC08,LC09",
			"type":        "string",
			"enum":        []string{"LT05", "LE07", "LC08", "LC09"},
		},
	}

	// Sensors only mean something to the M2M collections.
	if c := h.collections.Get(collectionID); c != nil {
		if c.M2M == nil {
			delete(properties, "landsat:sensor")
		} else if len(c.M2M.Sensors) > 0 {
			properties["landsat:sensor"].(map[string]any)["enum"] = c.M2M.Sensors
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"$schema":              "https://json-schema.org/draft/2019-09/schema",
		"$id":                  id,
		"type":                 "object",
		"title":                title,
		"description":          "Queryable properties for scene search",
		"properties":           properties,
		"additionalProperties": false,
	})
}
