package scene

import (
	"strings"
)

const landsatFields = 7

// LandsatDatasets maps a Landsat sensor prefix to its Collection 2 Level-1
// dataset name on the USGS M2M API.
var LandsatDatasets = map[string]string{
	"LT05": "landsat_tm_c2_l1",
	"LE07": "landsat_etm_c2_l1",
	"LC08": "landsat_ot_c2_l1",
	"LC09": "landsat_ot_c2_l1",
}

// LandsatSensors lists the supported sensors in search order.
var LandsatSensors = []string{"LT05", "LE07", "LC08", "LC09"}

// LandsatID is a parsed Landsat Collection 2 product identifier such as
// LC09_L1TP_232084_20220101_20220102_02_T1.
type LandsatID struct {
	Sensor          string
	Level           string
	PathRow         string
	AcquisitionDate string
	ProcessingDate  string
	Collection      string
	Tier            string
}

// ParseLandsatID splits a Landsat display id into its fields.
func ParseLandsatID(displayID string) (LandsatID, error) {
	parts := strings.Split(displayID, "_")
	if len(parts) != landsatFields {
		return LandsatID{}, &MalformedNameError{Name: displayID, Fields: len(parts), Want: landsatFields}
	}
	return LandsatID{
		Sensor:          parts[0],
		Level:           parts[1],
		PathRow:         parts[2],
		AcquisitionDate: parts[3],
		ProcessingDate:  parts[4],
		Collection:      parts[5],
		Tier:            parts[6],
	}, nil
}

// Path returns the WRS-2 path.
func (l LandsatID) Path() string {
	if len(l.PathRow) != 6 {
		return ""
	}
	return l.PathRow[:3]
}

// Row returns the WRS-2 row.
func (l LandsatID) Row() string {
	if len(l.PathRow) != 6 {
		return ""
	}
	return l.PathRow[3:]
}

// UniqueByName drops records with a repeated name. The last occurrence wins
// but keeps the position of the first. Landsat searches over several
// datasets can return the same display id more than once.
func UniqueByName(records []Record) []Record {
	pos := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := pos[r.Name]; ok {
			out[i] = r
			continue
		}
		pos[r.Name] = len(out)
		out = append(out, r)
	}
	return out
}

// FilterLandsat keeps Landsat records whose path/row and tier are in the
// given lists. An empty list does not filter. Records whose name is not a
// Landsat display id are dropped.
func FilterLandsat(records []Record, pathRows, tiers []string) []Record {
	if len(pathRows) == 0 && len(tiers) == 0 {
		return records
	}
	pr := toSet(pathRows)
	ts := toSet(tiers)

	out := make([]Record, 0, len(records))
	for _, s := range records {
		id, err := ParseLandsatID(s.Name)
		if err != nil {
			continue
		}
		if len(pr) > 0 {
			if _, ok := pr[id.PathRow]; !ok {
				continue
			}
		}
		if len(ts) > 0 {
			if _, ok := ts[id.Tier]; !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
