package stac

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortDirection represents the sort direction.
type SortDirection string

const (
	// SortAsc represents ascending sort order.
	SortAsc SortDirection = "asc"
	// SortDesc represents descending sort order.
	SortDesc SortDirection = "desc"
)

// sortable lists the item fields /search can order by.
var sortable = map[string]bool{
	"id":                     true,
	"collection":             true,
	"datetime":               true,
	"eo:cloud_cover":         true,
	"platform":               true,
	"sat:relative_orbit":     true,
	"s2:mgrs_tile":           true,
	"s2:processing_baseline": true,
	"landsat:wrs_path":       true,
	"landsat:wrs_row":        true,
}

// NormalizeSortField strips a "properties." prefix and checks the field is
// sortable.
func NormalizeSortField(field string) (string, error) {
	f := strings.TrimPrefix(field, "properties.")
	if f == "start_datetime" {
		f = "datetime"
	}
	if !sortable[f] {
		return "", fmt.Errorf("unsupported sort field: %s", field)
	}
	return f, nil
}

// SortItems orders items in place. Items missing a property sort after the
// ones that have it, whatever the direction. The sort is stable.
func SortItems(items []*Item, sortby []SortbyItem) error {
	if len(sortby) == 0 {
		return nil
	}

	type key struct {
		field string
		desc  bool
	}
	keys := make([]key, 0, len(sortby))
	for _, s := range sortby {
		f, err := NormalizeSortField(s.Field)
		if err != nil {
			return err
		}
		keys = append(keys, key{field: f, desc: SortDirection(s.Direction) == SortDesc})
	}

	slices.SortStableFunc(items, func(a, b *Item) int {
		for _, k := range keys {
			va, vb := sortValue(a, k.field), sortValue(b, k.field)
			switch {
			case va == nil && vb == nil:
				continue
			case va == nil:
				return 1
			case vb == nil:
				return -1
			}
			c := compareValues(va, vb)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return nil
}

func sortValue(item *Item, field string) any {
	switch field {
	case "id":
		return item.Id
	case "collection":
		return item.Collection
	}
	return item.Properties[field]
}

func compareValues(a, b any) int {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
