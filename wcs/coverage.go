package wcs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/delta10/wcs-client/crs"
)

// BoundingBox is an envelope given by its lower and upper corner. CRS is
// empty for WGS84 boxes.
type BoundingBox struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
	CRS  string  `json:"crs,omitempty"`
}

// Slice returns the box as minx, miny, maxx, maxy.
func (b BoundingBox) Slice() []float64 {
	return []float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

func (b BoundingBox) String() string {
	s := formatFloats(b.Slice())
	if b.CRS != "" {
		s += "," + b.CRS
	}
	return s
}

// parseCorners builds a box from a lower and upper corner, each a whitespace
// separated coordinate pair.
func parseCorners(lower, upper, crsName string) (*BoundingBox, error) {
	lc, err := parseFloatList(lower)
	if err != nil {
		return nil, err
	}
	uc, err := parseFloatList(upper)
	if err != nil {
		return nil, err
	}
	if len(lc) < 2 || len(uc) < 2 {
		return nil, fmt.Errorf("bounding box corners %q and %q need two coordinates each", lower, upper)
	}
	return &BoundingBox{MinX: lc[0], MinY: lc[1], MaxX: uc[0], MaxY: uc[1], CRS: crsName}, nil
}

func parseFloatList(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseIntList(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid grid limit %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// Grid describes a gml:Grid, or a gml:RectifiedGrid when Rectified is set.
// Offsets are kept as given; converting them to world coordinates needs CRS
// knowledge this package does not have.
type Grid struct {
	Rectified     bool        `json:"rectified"`
	Dimension     int         `json:"dimension"`
	AxisLabels    []string    `json:"axisLabels,omitempty"`
	LowLimits     []int       `json:"lowLimits,omitempty"`
	HighLimits    []int       `json:"highLimits,omitempty"`
	Origin        []float64   `json:"origin,omitempty"`
	OffsetVectors [][]float64 `json:"offsetVectors,omitempty"`
}

// GridCRS is the grid definition of a WCS 1.1 coverage description.
type GridCRS struct {
	BaseCRS string    `json:"baseCrs,omitempty"`
	Type    string    `json:"type,omitempty"`
	CS      string    `json:"cs,omitempty"`
	Origin  []float64 `json:"origin,omitempty"`
	Offsets []float64 `json:"offsets,omitempty"`
}

// AxisDescription describes an additional dimension of the range set, such
// as wavelength bands or pressure levels.
type AxisDescription struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Values []string `json:"values,omitempty"`
}

type TimePeriod struct {
	Begin      string `json:"begin"`
	End        string `json:"end"`
	Resolution string `json:"resolution,omitempty"`
}

// CoverageDescription is the version neutral content of a DescribeCoverage
// response for one coverage.
type CoverageDescription struct {
	Identifier       string            `json:"identifier"`
	Title            string            `json:"title,omitempty"`
	Abstract         string            `json:"abstract,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	Envelopes        []BoundingBox     `json:"envelopes,omitempty"`
	Grid             *Grid             `json:"grid,omitempty"`
	GridCRS          *GridCRS          `json:"gridCrs,omitempty"`
	TimePositions    []string          `json:"timePositions,omitempty"`
	TimePeriods      []TimePeriod      `json:"timePeriods,omitempty"`
	SupportedCRS     []string          `json:"supportedCrs,omitempty"`
	SupportedFormats []string          `json:"supportedFormats,omitempty"`
	NativeFormat     string            `json:"nativeFormat,omitempty"`
	Interpolations   []string          `json:"interpolations,omitempty"`
	AxisDescriptions []AxisDescription `json:"axisDescriptions,omitempty"`
}

// CoverageMetadata is a coverage as advertised in a capabilities document.
// Properties that are only known from a DescribeCoverage response are
// resolved on demand through methods taking a context.
type CoverageMetadata struct {
	ID               string       `json:"id"`
	Title            string       `json:"title,omitempty"`
	Abstract         string       `json:"abstract,omitempty"`
	Description      string       `json:"description,omitempty"`
	Keywords         []string     `json:"keywords,omitempty"`
	BoundingBoxWGS84 *BoundingBox `json:"boundingBoxWGS84,omitempty"`

	// Filled from the capabilities document by WCS 1.1 services only.
	SummaryBoundingBoxes []BoundingBox `json:"boundingBoxes,omitempty"`
	SummaryCRS           []string      `json:"supportedCrs,omitempty"`
	SummaryFormats       []string      `json:"supportedFormats,omitempty"`

	// Time positions found in the WCS 1.0 lonLatEnvelope.
	EnvelopeTimePositions []string `json:"envelopeTimePositions,omitempty"`

	service *Service
}

func (c *CoverageMetadata) version11() bool {
	return c.service != nil && isVersion11(c.service.Version)
}

func (c *CoverageMetadata) describe(ctx context.Context) (*CoverageDescription, error) {
	if c.service == nil {
		return nil, fmt.Errorf("coverage %s is not bound to a service", c.ID)
	}
	return c.service.DescribeCoverage(ctx, c.ID)
}

// Grid returns the grid of a WCS 1.0 coverage, preferring a RectifiedGrid.
// WCS 1.1 descriptions carry a GridCRS instead and return nil.
func (c *CoverageMetadata) Grid(ctx context.Context) (*Grid, error) {
	if c.version11() {
		return nil, nil
	}
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.Grid, nil
}

// GridCRS returns the grid definition of a WCS 1.1 coverage.
func (c *CoverageMetadata) GridCRS(ctx context.Context) (*GridCRS, error) {
	if !c.version11() {
		return nil, nil
	}
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.GridCRS, nil
}

// TimeLimits returns the start and end time of the coverage, or nil when
// the server declares none. For 1.0 these are the first and last positions
// of the lonLatEnvelope, or of the described temporal domain when the
// envelope lists no positions.
func (c *CoverageMetadata) TimeLimits(ctx context.Context) ([]string, error) {
	if !c.version11() && len(c.EnvelopeTimePositions) > 0 {
		return timeLimits(c.EnvelopeTimePositions), nil
	}

	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	if c.version11() {
		if len(desc.TimePeriods) == 0 {
			return nil, nil
		}
		last := desc.TimePeriods[len(desc.TimePeriods)-1]
		return []string{last.Begin, last.End}, nil
	}
	return timeLimits(desc.TimePositions), nil
}

func timeLimits(positions []string) []string {
	if len(positions) == 0 {
		return nil
	}
	return []string{positions[0], positions[len(positions)-1]}
}

// TimePositions returns every time position the coverage is available at.
func (c *CoverageMetadata) TimePositions(ctx context.Context) ([]string, error) {
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.TimePositions, nil
}

// BoundingBoxes returns the bounding boxes in CRSs other than WGS84.
func (c *CoverageMetadata) BoundingBoxes(ctx context.Context) ([]BoundingBox, error) {
	if c.version11() {
		return c.SummaryBoundingBoxes, nil
	}
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.Envelopes, nil
}

// SupportedCRS returns the parsed CRSs the coverage can be requested in.
// Identifiers that cannot be parsed are skipped.
func (c *CoverageMetadata) SupportedCRS(ctx context.Context) ([]crs.CRS, error) {
	names := c.SummaryCRS
	if !c.version11() {
		desc, err := c.describe(ctx)
		if err != nil {
			return nil, err
		}
		names = desc.SupportedCRS
	}

	out := make([]crs.CRS, 0, len(names))
	for _, name := range names {
		parsed, err := crs.Parse(name)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

func (c *CoverageMetadata) SupportedFormats(ctx context.Context) ([]string, error) {
	if c.version11() {
		return c.SummaryFormats, nil
	}
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.SupportedFormats, nil
}

func (c *CoverageMetadata) AxisDescriptions(ctx context.Context) ([]AxisDescription, error) {
	desc, err := c.describe(ctx)
	if err != nil {
		return nil, err
	}
	return desc.AxisDescriptions, nil
}
