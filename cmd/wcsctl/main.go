package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	wcsVersion string
	timeout    time.Duration
	debug      bool
	filter     string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wcsctl",
	Short: "Inspect and download from OGC Web Coverage Services",
	Long: `wcsctl reads the capabilities and coverage descriptions of WCS 1.0.0 and
1.1.x servers and prints them as JSON. It downloads coverages and serves
configured services through an HTTP gateway.

Example:
  wcsctl capabilities https://example.org/wcs --filter '.contents[].id'
  wcsctl coverage https://example.org/wcs dem --bbox 3.2,50.7,7.3,53.6 --crs EPSG:4326 --format GeoTIFF --out dem.tif`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if debug {
			config.Level.SetLevel(zapcore.DebugLevel)
		}

		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&wcsVersion, "version", "", "WCS version to request (default: the server's)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&filter, "filter", "", "jq expression applied to the JSON output")

	coverageCmd.Flags().StringVar(&coverageFlags.bbox, "bbox", "", "Bounding box as minx,miny,maxx,maxy")
	coverageCmd.Flags().StringVar(&coverageFlags.format, "format", "", "Output format")
	coverageCmd.Flags().StringVar(&coverageFlags.crs, "crs", "", "CRS of the bounding box")
	coverageCmd.Flags().IntVar(&coverageFlags.width, "width", 0, "Output width in pixels (WCS 1.0)")
	coverageCmd.Flags().IntVar(&coverageFlags.height, "height", 0, "Output height in pixels (WCS 1.0)")
	coverageCmd.Flags().StringSliceVar(&coverageFlags.time, "time", nil, "Time positions")
	coverageCmd.Flags().StringVar(&coverageFlags.out, "out", "", "Output file (default: stdout)")
	coverageCmd.Flags().BoolVar(&coverageFlags.post, "post", false, "Send the request as a POST")
	coverageCmd.Flags().StringToStringVar(&coverageFlags.params, "param", nil, "Vendor parameter as key=value")

	serveCmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the gateway configuration")

	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
