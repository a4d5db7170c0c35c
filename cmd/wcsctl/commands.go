package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/delta10/wcs-client/internal/auth"
	"github.com/delta10/wcs-client/internal/config"
	"github.com/delta10/wcs-client/internal/gateway"
	"github.com/delta10/wcs-client/internal/utils"
	"github.com/delta10/wcs-client/wcs"
)

var (
	configPath string

	coverageFlags struct {
		bbox   string
		format string
		crs    string
		width  int
		height int
		time   []string
		out    string
		post   bool
		params map[string]string
	}
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities URL",
	Short: "Print the capabilities of a service",
	Args:  cobra.ExactArgs(1),
	RunE:  runCapabilities,
}

var describeCmd = &cobra.Command{
	Use:   "describe URL COVERAGE",
	Short: "Print the description of a coverage",
	Args:  cobra.ExactArgs(2),
	RunE:  runDescribe,
}

var coverageCmd = &cobra.Command{
	Use:   "coverage URL COVERAGE",
	Short: "Download a coverage",
	Args:  cobra.ExactArgs(2),
	RunE:  runCoverage,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured services over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func openService(ctx context.Context, serviceURL string) (*wcs.Service, error) {
	client := wcs.NewClient(wcs.WithLogger(logger), wcs.WithTimeout(timeout))
	return client.Open(ctx, serviceURL, wcsVersion)
}

// writeJSON prints v, or the result of --filter applied to it.
func writeJSON(w io.Writer, v interface{}) error {
	if filter != "" {
		filtered, err := utils.ApplyFilter(filter, v)
		if err != nil {
			return err
		}
		v = filtered
	}

	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := openService(ctx, args[0])
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), s)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := openService(ctx, args[0])
	if err != nil {
		return err
	}

	cm, err := s.Coverage(args[1])
	if err != nil {
		return err
	}

	desc, err := s.DescribeCoverage(ctx, cm.ID)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), desc)
}

func coverageParams(identifier string) (wcs.GetCoverageParams, error) {
	f := coverageFlags
	p := wcs.GetCoverageParams{
		Identifier: identifier,
		Format:     f.format,
		CRS:        f.crs,
		BBoxCRS:    f.crs,
		Width:      f.width,
		Height:     f.height,
		Time:       f.time,
	}
	if f.post {
		p.Method = "Post"
	}

	if f.bbox != "" {
		for _, part := range strings.Split(f.bbox, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return p, fmt.Errorf("invalid bbox %q: %w", f.bbox, err)
			}
			p.BBox = append(p.BBox, v)
		}
		if len(p.BBox) != 4 && len(p.BBox) != 6 {
			return p, fmt.Errorf("invalid bbox %q: expected 4 or 6 values", f.bbox)
		}
	}

	if len(f.params) > 0 {
		p.Vendor = url.Values{}
		for k, v := range f.params {
			p.Vendor.Set(k, v)
		}
	}

	return p, nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	params, err := coverageParams(args[1])
	if err != nil {
		return err
	}

	s, err := openService(ctx, args[0])
	if err != nil {
		return err
	}

	resp, err := s.GetCoverage(ctx, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var n int64
	if coverageFlags.out != "" {
		n, err = writeFile(coverageFlags.out, resp.Body)
	} else {
		n, err = io.Copy(cmd.OutOrStdout(), resp.Body)
	}
	if err != nil {
		return fmt.Errorf("could not write coverage: %w", err)
	}

	logger.Info("downloaded coverage",
		zap.String("coverage", params.Identifier),
		zap.String("contentType", resp.Header.Get("Content-Type")),
		zap.Int64("bytes", n))
	return nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(file, r)
	if err != nil {
		_ = file.Close()
		return n, err
	}
	return n, file.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}

	opts := []gateway.Option{gateway.WithLogger(logger)}
	if c.JwksURL != "" {
		validator, err := auth.NewJWKSValidator(c.JwksURL, logger)
		if err != nil {
			return err
		}
		defer validator.Close()
		opts = append(opts, gateway.WithValidator(validator))
	}

	g, err := gateway.New(c, opts...)
	if err != nil {
		return err
	}
	return g.ListenAndServe()
}
