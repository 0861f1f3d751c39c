// Package archive places downloaded product archives on disk and fetches
// them with retries.
package archive

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vpremier/data-download/internal/scene"
)

// SentinelPath is outdir/Sentinel2/<tile>/<name>.zip for Sentinel-2
// products. Other CDSE products go to outdir/<collection>/<name>.zip.
func SentinelPath(outdir string, rec scene.Record) string {
	base := archiveName(rec.Name) + ".zip"

	if id, err := scene.ParseIdentifier(rec.Name); err == nil && strings.HasPrefix(id.Mission, "S2") {
		return filepath.Join(outdir, "Sentinel2", id.Tile, base)
	}

	dir := rec.Collection
	if dir == "" {
		dir = "products"
	}
	return filepath.Join(outdir, dir, base)
}

// LandsatPath is outdir/Landsat/<sensor>/<pathrow>/<displayId>.tar.
func LandsatPath(outdir, displayID string) (string, error) {
	id, err := scene.ParseLandsatID(displayID)
	if err != nil {
		return "", err
	}
	return filepath.Join(outdir, "Landsat", id.Sensor, id.PathRow, displayID+".tar"), nil
}

// Exists reports whether path is a non-empty regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func archiveName(name string) string {
	for _, ext := range []string{".SAFE", ".SEN3", ".zip"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
