package cdse

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// odataTime is the timestamp layout accepted in ContentDate comparisons.
const odataTime = "2006-01-02T15:04:05.000Z"

// ProductTypes are the catalogue product types that can be searched by
// productType attribute.
var ProductTypes = []string{"S2MSI1C", "S2MSI2A", "SY_2_SYN___"}

// CollectionNames are the catalogue collections searched by Collection/Name.
var CollectionNames = []string{"LANDSAT-5", "LANDSAT-7", "LANDSAT-8-ESA"}

// SearchParams describes a catalogue query. Exactly one of ProductType and
// CollectionName is set.
type SearchParams struct {
	ProductType    string
	CollectionName string

	Start time.Time // exclusive
	End   time.Time // exclusive

	// MaxCloudCover is a strict upper bound in percent.
	MaxCloudCover float64

	// Area is a WKT polygon in EPSG:4326. Empty means the whole world.
	Area string

	// Tile restricts results to names containing it, e.g. T32TNS.
	Tile string

	// Top is the page size.
	Top int

	// ExpandAttributes asks the catalogue to inline product attributes.
	ExpandAttributes bool
}

// Validate checks that the query targets a supported product type or
// collection and has a usable time range.
func (p *SearchParams) Validate() error {
	switch {
	case p.ProductType != "" && p.CollectionName != "":
		return fmt.Errorf("%w: both product type %q and collection %q set", ErrUnsupportedCollection, p.ProductType, p.CollectionName)
	case p.ProductType != "":
		if !slices.Contains(ProductTypes, p.ProductType) {
			return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedCollection, p.ProductType, strings.Join(Supported(), ", "))
		}
	case p.CollectionName != "":
		if !slices.Contains(CollectionNames, p.CollectionName) {
			return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedCollection, p.CollectionName, strings.Join(Supported(), ", "))
		}
	default:
		return fmt.Errorf("%w: none given", ErrUnsupportedCollection)
	}

	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("end %s is not after start %s", p.End.Format(time.DateOnly), p.Start.Format(time.DateOnly))
	}
	if p.MaxCloudCover < 0 || p.MaxCloudCover > 100 {
		return fmt.Errorf("max cloud cover %g out of range [0, 100]", p.MaxCloudCover)
	}
	return nil
}

// Supported lists every accepted product type and collection name.
func Supported() []string {
	out := make([]string, 0, len(ProductTypes)+len(CollectionNames))
	out = append(out, ProductTypes...)
	return append(out, CollectionNames...)
}

// Filter builds the OData $filter expression.
func (p *SearchParams) Filter() string {
	var clauses []string

	if p.Tile != "" {
		clauses = append(clauses, fmt.Sprintf("contains(Name,'%s')", quote(p.Tile)))
	}

	if p.ProductType != "" {
		clauses = append(clauses, fmt.Sprintf(
			"Attributes/OData.CSC.StringAttribute/any(att:att/Name eq 'productType' and att/OData.CSC.StringAttribute/Value eq '%s')",
			quote(p.ProductType)))
	} else {
		clauses = append(clauses, fmt.Sprintf("Collection/Name eq '%s'", quote(p.CollectionName)))
	}

	clauses = append(clauses, fmt.Sprintf(
		"Attributes/OData.CSC.DoubleAttribute/any(att:att/Name eq 'cloudCover' and att/OData.CSC.DoubleAttribute/Value lt %s)",
		strconv.FormatFloat(p.MaxCloudCover, 'f', -1, 64)))

	area := p.Area
	if area == "" {
		area = worldWKT
	}
	clauses = append(clauses, fmt.Sprintf("OData.CSC.Intersects(area=geography'SRID=4326;%s')", area))

	clauses = append(clauses,
		"ContentDate/Start gt "+p.Start.UTC().Format(odataTime),
		"ContentDate/Start lt "+p.End.UTC().Format(odataTime),
	)

	return strings.Join(clauses, " and ")
}

const worldWKT = "POLYGON((-180 -90,180 -90,180 90,-180 90,-180 -90))"

// ToURLValues converts SearchParams to url.Values.
func (p *SearchParams) ToURLValues() url.Values {
	values := url.Values{}
	values.Set("$filter", p.Filter())
	if p.Top > 0 {
		values.Set("$top", strconv.Itoa(p.Top))
	}
	if p.ExpandAttributes {
		values.Set("$expand", "Attributes")
	}
	return values
}

// ToQueryString encodes the query with %20 for spaces. OData servers do not
// all accept '+' in $filter.
func (p *SearchParams) ToQueryString() string {
	return strings.ReplaceAll(p.ToURLValues().Encode(), "+", "%20")
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
