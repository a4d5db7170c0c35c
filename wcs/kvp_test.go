package wcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesURL(t *testing.T) {
	tests := []struct {
		name       string
		serviceURL string
		version    string
		want       string
	}{
		{
			name:       "plain",
			serviceURL: "http://example.org/wcs",
			version:    "1.0.0",
			want:       "http://example.org/wcs?service=WCS&request=GetCapabilities&version=1.0.0",
		},
		{
			name:       "trailing question mark",
			serviceURL: "http://example.org/wcs?",
			version:    "1.1.0",
			want:       "http://example.org/wcs?service=WCS&request=GetCapabilities&version=1.1.0",
		},
		{
			name:       "existing pairs are kept and not repeated",
			serviceURL: "http://example.org/cgi?map=/data/dem.map&SERVICE=WCS",
			version:    "1.0.0",
			want:       "http://example.org/cgi?map=%2Fdata%2Fdem.map&SERVICE=WCS&request=GetCapabilities&version=1.0.0",
		},
		{
			name:       "no version",
			serviceURL: "http://example.org/wcs",
			version:    "",
			want:       "http://example.org/wcs?service=WCS&request=GetCapabilities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapabilitiesURL(tt.serviceURL, tt.version))
		})
	}
}

func TestDescribeCoverageURL(t *testing.T) {
	assert.Equal(t,
		"http://example.org/wcs?service=WCS&request=DescribeCoverage&version=1.0.0&coverage=dem",
		DescribeCoverageURL("http://example.org/wcs", "1.0.0", "dem"))

	assert.Equal(t,
		"http://example.org/wcs?service=WCS&request=DescribeCoverage&version=1.1.0&identifiers=dem&identifier=dem&format=text%2Fxml",
		DescribeCoverageURL("http://example.org/wcs?", "1.1.0", "dem"))

	assert.Equal(t,
		"http://example.org/wcs?Identifier=x&service=WCS&request=DescribeCoverage&version=1.1.1&identifiers=dem",
		DescribeCoverageURL("http://example.org/wcs?Identifier=x", "1.1.1", "dem"))
}

func TestFormatFloats(t *testing.T) {
	assert.Equal(t, "-180,-90.5,180,90", formatFloats([]float64{-180, -90.5, 180, 90}))
	assert.Equal(t, "0.0001", formatFloat(0.0001))
}
