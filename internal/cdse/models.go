package cdse

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vpremier/data-download/pkg/geojson"
)

// ProductsResponse is one page of the OData Products endpoint.
type ProductsResponse struct {
	Value    []Product `json:"value"`
	NextLink string    `json:"@odata.nextLink,omitempty"`
	Count    *int      `json:"@odata.count,omitempty"`
}

// Product is a catalogue entry as returned by OData.
type Product struct {
	ID              string            `json:"Id"`
	Name            string            `json:"Name"`
	ContentType     string            `json:"ContentType,omitempty"`
	ContentLength   int64             `json:"ContentLength,omitempty"`
	OriginDate      *time.Time        `json:"OriginDate,omitempty"`
	PublicationDate *time.Time        `json:"PublicationDate,omitempty"`
	Online          bool              `json:"Online"`
	S3Path          string            `json:"S3Path,omitempty"`
	ContentDate     ContentDate       `json:"ContentDate"`
	Footprint       string            `json:"Footprint,omitempty"`
	GeoFootprint    *geojson.Geometry `json:"GeoFootprint,omitempty"`
	Attributes      []Attribute       `json:"Attributes,omitempty"`
}

// ContentDate is the sensing interval of a product.
type ContentDate struct {
	Start time.Time `json:"Start"`
	End   time.Time `json:"End"`
}

// Attribute is a typed product attribute. Only present when the query
// expands Attributes.
type Attribute struct {
	Type      string          `json:"@odata.type,omitempty"`
	Name      string          `json:"Name"`
	Value     json.RawMessage `json:"Value"`
	ValueType string          `json:"ValueType,omitempty"`
}

// Attribute returns the named attribute or nil.
func (p *Product) Attribute(name string) *Attribute {
	for i := range p.Attributes {
		if p.Attributes[i].Name == name {
			return &p.Attributes[i]
		}
	}
	return nil
}

// CloudCover returns the cloudCover attribute, or nil when absent.
func (p *Product) CloudCover() *float64 {
	a := p.Attribute("cloudCover")
	if a == nil {
		return nil
	}
	v, ok := a.Float()
	if !ok {
		return nil
	}
	return &v
}

// Geometry returns the product footprint. GeoFootprint is preferred, the
// WKT Footprint is used as a fallback.
func (p *Product) Geometry() *geojson.Geometry {
	if p.GeoFootprint != nil && p.GeoFootprint.IsAreal() {
		return p.GeoFootprint
	}
	if p.Footprint == "" {
		return nil
	}
	g, err := geojson.FromWKT(p.Footprint)
	if err != nil {
		return nil
	}
	return g
}

// Float decodes a numeric attribute value. Some endpoints send numbers as
// strings.
func (a *Attribute) Float() (float64, bool) {
	if len(a.Value) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(a.Value, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(a.Value, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String decodes a string attribute value.
func (a *Attribute) String() string {
	var s string
	if err := json.Unmarshal(a.Value, &s); err != nil {
		return string(a.Value)
	}
	return s
}

// tokenResponse is the OpenID Connect token endpoint payload.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
}
