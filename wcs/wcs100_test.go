package wcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	doc, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return doc
}

func TestParseCapabilities100(t *testing.T) {
	s, err := Parse("http://example.org/wcs", "1.0.0", readFixture(t, "wcs100_capabilities.xml"))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", s.Version)
	assert.Equal(t, "42", s.UpdateSequence)

	wantIdent := ServiceIdentification{
		Type:              "OGC:WCS",
		Version:           "1.0.0",
		Service:           "WCS",
		Title:             "Example Coverage Service",
		Abstract:          "Elevation and land cover coverages",
		Keywords:          []string{"elevation", "landcover"},
		Fees:              "NONE",
		AccessConstraints: "NONE",
	}
	if diff := cmp.Diff(wantIdent, s.Identification); diff != "" {
		t.Errorf("identification mismatch (-want +got):\n%s", diff)
	}

	wantProvider := ServiceProvider{
		Name: "Example Geo",
		URL:  "Example Geo",
		Contact: &ContactMetadata{
			Name:         "Jane Doe",
			Organization: "Example Geo",
			Position:     "Data steward",
			Address:      "Main street 1",
			City:         "Amsterdam",
			Region:       "Noord-Holland",
			Postcode:     "1000 AA",
			Country:      "NL",
			Email:        "data@example.org",
			Phone:        "+31 20 000 0000",
		},
	}
	if diff := cmp.Diff(wantProvider, s.Provider); diff != "" {
		t.Errorf("provider mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, s.Operations, 3)
	assert.Equal(t, []OperationMethod{
		{Type: "Get", URL: "http://example.org/wcs?"},
		{Type: "Post", URL: "http://example.org/wcs"},
	}, s.Operations[0].Methods)

	op, err := s.OperationByName("GetCoverage")
	require.NoError(t, err)
	assert.Equal(t, []OperationMethod{
		{Type: "Get", URL: "http://example.org/coverage?map=dem"},
		{Type: "Post", URL: "http://example.org/coverage-post"},
	}, op.Methods)

	_, err = s.OperationByName("GetMap")
	assert.True(t, errors.Is(err, ErrNoOperation))

	assert.Equal(t, []string{"application/vnd.ogc.se_xml"}, s.Exceptions)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "dem", items[0].ID)
	assert.Equal(t, "landcover", items[1].ID)

	dem, err := s.Coverage("dem")
	require.NoError(t, err)
	assert.Equal(t, "Elevation", dem.Title)
	assert.Equal(t, "Digital elevation model", dem.Abstract)
	assert.Equal(t, []string{"height"}, dem.Keywords)
	assert.Equal(t, &BoundingBox{MinX: 3.2, MinY: 50.7, MaxX: 7.3, MaxY: 53.6}, dem.BoundingBoxWGS84)
	assert.Equal(t, []string{"2020-01-01", "2023-12-31"}, dem.EnvelopeTimePositions)

	_, err = s.Coverage("missing")
	assert.True(t, errors.Is(err, ErrNoContent))
}

func TestTimeLimitsFromEnvelope100(t *testing.T) {
	s, err := Parse("http://example.org/wcs", "1.0.0", readFixture(t, "wcs100_capabilities.xml"))
	require.NoError(t, err)

	dem, err := s.Coverage("dem")
	require.NoError(t, err)

	// Answered from the capabilities document, no request is made.
	limits, err := dem.TimeLimits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-01-01", "2023-12-31"}, limits)

	grid, err := dem.GridCRS(context.Background())
	require.NoError(t, err)
	assert.Nil(t, grid)
}

func TestParseDescribeCoverage100(t *testing.T) {
	desc, err := parseDescribeCoverage100(readFixture(t, "wcs100_describecoverage.xml"), "landcover")
	require.NoError(t, err)

	want := &CoverageDescription{
		Identifier: "landcover",
		Title:      "Land cover",
		Abstract:   "Land cover classes",
		Envelopes: []BoundingBox{
			{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90, CRS: "EPSG:4326"},
			{MinX: -20037508.34, MinY: -20037508.34, MaxX: 20037508.34, MaxY: 20037508.34, CRS: "EPSG:3857"},
		},
		Grid: &Grid{
			Rectified:     true,
			Dimension:     2,
			AxisLabels:    []string{"x", "y"},
			LowLimits:     []int{0, 0},
			HighLimits:    []int{3599, 1799},
			Origin:        []float64{-180, 90},
			OffsetVectors: [][]float64{{0.1, 0}, {0, -0.1}},
		},
		TimePositions:    []string{"2015-01-01", "2019-01-01", "2021-01-01"},
		SupportedCRS:     []string{"EPSG:4326", "EPSG:3857", "EPSG:4326"},
		SupportedFormats: []string{"GeoTIFF", "NetCDF"},
		NativeFormat:     "GeoTIFF",
		Interpolations:   []string{"nearest neighbor", "bilinear"},
		AxisDescriptions: []AxisDescription{
			{Name: "Band", Label: "Band", Values: []string{"1", "2", "10/20/2"}},
		},
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}

func TestContentOfferingBriefFallback(t *testing.T) {
	doc := `<WCS_Capabilities xmlns="http://www.opengis.net/wcs" version="1.0.0">
  <ContentMetadata>
    <ContentOfferingBrief><name>only</name></ContentOfferingBrief>
  </ContentMetadata>
</WCS_Capabilities>`

	s, err := Parse("http://example.org/wcs", "1.0.0", []byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Contents, 1)
	assert.Equal(t, "only", s.Contents[0].ID)
	assert.Equal(t, ServiceProvider{}, s.Provider)
	assert.Empty(t, s.Operations)
}
