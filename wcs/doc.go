// Package wcs is a client for OGC Web Coverage Services, versions 1.0.0 and
// 1.1.x.
//
// A Client fetches a capabilities document and parses it into a Service:
//
//	client := wcs.NewClient(wcs.WithLogger(logger))
//	svc, err := client.Open(ctx, "https://example.org/wcs", wcs.Version100)
//	if err != nil {
//		return err
//	}
//	dem, err := svc.Coverage("dem")
//
// Properties that are only published in DescribeCoverage responses, such as
// grids and supported CRSs, are fetched the first time they are asked for
// and cached on the Service.
//
// GetCoverage requests are built from GetCoverageParams and sent to the URL
// the service advertises for the chosen HTTP method:
//
//	resp, err := svc.GetCoverage(ctx, wcs.GetCoverageParams{
//		Identifier: "dem",
//		BBox:       []float64{3.2, 50.7, 7.3, 53.6},
//		CRS:        "EPSG:4326",
//		Format:     "GeoTIFF",
//		Width:      512,
//		Height:     512,
//	})
//
// Servers that report a failure with an exception document yield a
// *ServiceException.
package wcs
