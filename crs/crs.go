// Package crs parses coordinate reference system identifiers as they appear
// in OGC service documents and renders them in the other common forms.
package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	EncodingCode = "code"
	EncodingURN  = "urn"
	EncodingURI  = "uri"

	AxisOrderXY = "xy"
	AxisOrderYX = "yx"
)

var ErrInvalid = errors.New("invalid crs identifier")

// CRS is a parsed identifier such as EPSG:4326 or urn:ogc:def:crs:EPSG::4326.
type CRS struct {
	ID        string `json:"id"`
	Authority string `json:"authority"`
	Version   string `json:"version,omitempty"`
	Code      string `json:"code"`
	Encoding  string `json:"encoding"`
	AxisOrder string `json:"axisOrder"`
}

// Parse reads id in one of the forms
//
//	EPSG:4326
//	CRS:84
//	urn:ogc:def:crs:EPSG::4326
//	urn:ogc:def:crs:EPSG:6.6:4326
//	http://www.opengis.net/gml/srs/epsg.xml#4326
//	http://www.opengis.net/def/crs/EPSG/0/4326
func Parse(id string) (CRS, error) {
	value := strings.TrimSpace(id)
	c := CRS{ID: id, AxisOrder: AxisOrderXY}

	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "urn:"):
		parts := strings.Split(value, ":")
		// urn:ogc:def:crs:AUTH:VERSION:CODE or urn:x-ogc:def:crs:AUTH:CODE
		switch {
		case len(parts) >= 7:
			c.Authority, c.Version, c.Code = parts[4], parts[5], parts[len(parts)-1]
		case len(parts) == 6:
			c.Authority, c.Code = parts[4], parts[5]
		default:
			return CRS{}, fmt.Errorf("%w: %q", ErrInvalid, id)
		}
		if !strings.EqualFold(parts[3], "crs") {
			return CRS{}, fmt.Errorf("%w: %q", ErrInvalid, id)
		}
		c.Encoding = EncodingURN

	case strings.Contains(value, "#"):
		// http://www.opengis.net/gml/srs/epsg.xml#4326
		i := strings.LastIndex(value, "#")
		c.Code = value[i+1:]
		if !strings.Contains(lower, "epsg") {
			return CRS{}, fmt.Errorf("%w: %q", ErrInvalid, id)
		}
		c.Authority = "EPSG"
		c.Encoding = EncodingURI
		c.finish()
		return c, c.validate()

	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		// http://www.opengis.net/def/crs/AUTH/VERSION/CODE
		path := value[strings.Index(value, "://")+3:]
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) < 5 || !strings.EqualFold(parts[len(parts)-4], "crs") {
			return CRS{}, fmt.Errorf("%w: %q", ErrInvalid, id)
		}
		c.Authority, c.Version, c.Code = parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]
		c.Encoding = EncodingURI

	default:
		parts := strings.Split(value, ":")
		if len(parts) != 2 {
			return CRS{}, fmt.Errorf("%w: %q", ErrInvalid, id)
		}
		c.Authority, c.Code = parts[0], parts[1]
		c.Encoding = EncodingCode
		c.finish()
		return c, c.validate()
	}

	c.finish()
	if err := c.validate(); err != nil {
		return CRS{}, err
	}
	// Only the URN and def/crs forms carry the authority's axis order.
	if c.Authority == "EPSG" && northingFirst(c.Code) {
		c.AxisOrder = AxisOrderYX
	}
	return c, nil
}

func (c *CRS) finish() {
	c.Authority = strings.ToUpper(c.Authority)
	if c.Version == "0" {
		c.Version = ""
	}
}

func (c CRS) validate() error {
	if c.Authority == "" || c.Code == "" {
		return fmt.Errorf("%w: %q", ErrInvalid, c.ID)
	}
	if c.Authority == "EPSG" {
		if _, err := strconv.Atoi(c.Code); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalid, c.ID)
		}
	}
	return nil
}

// IntCode returns the numeric code, or false for codes like CRS84.
func (c CRS) IntCode() (int, bool) {
	n, err := strconv.Atoi(c.Code)
	return n, err == nil
}

// CodeString renders the AUTHORITY:CODE form, e.g. EPSG:4326.
func (c CRS) CodeString() string {
	return c.Authority + ":" + c.Code
}

// URN renders urn:ogc:def:crs:AUTHORITY:VERSION:CODE.
func (c CRS) URN() string {
	return fmt.Sprintf("urn:ogc:def:crs:%s:%s:%s", c.Authority, c.Version, c.Code)
}

// URI renders http://www.opengis.net/def/crs/AUTHORITY/VERSION/CODE.
func (c CRS) URI() string {
	version := c.Version
	if version == "" {
		version = "0"
	}
	return fmt.Sprintf("http://www.opengis.net/def/crs/%s/%s/%s", c.Authority, version, c.Code)
}

// String returns the identifier in the encoding it was parsed from.
func (c CRS) String() string {
	switch c.Encoding {
	case EncodingURN:
		return c.URN()
	case EncodingURI:
		return c.URI()
	default:
		return c.CodeString()
	}
}

// Equal reports whether both identify the same authority and code, whatever
// their encoding.
func (c CRS) Equal(other CRS) bool {
	return c.Authority == other.Authority && c.Code == other.Code
}
