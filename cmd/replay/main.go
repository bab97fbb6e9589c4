// Command replay runs one fill-weather-forecast action offline: the graph is
// loaded from a YAML seed and the forecast from a recorded provider response.
// It prints the completion report and the resulting graph as YAML.
//
// Usage:
//
//	go run ./cmd/replay \
//	  -seed internal/enrichment/testdata/minsk.yaml \
//	  -forecast forecast.json \
//	  -input weather_request_1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/memgraph"
	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/openweather"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/enrichment"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/couchcryptid/rain-fact-enricher/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type options struct {
	seed      string
	forecast  string
	input     string
	city      string
	date      string
	requestID string
	threshold float64
	verbose   bool
}

// result is the printed document.
type result struct {
	Report reportView    `yaml:"report"`
	Graph  memgraph.Seed `yaml:"graph"`
}

type reportView struct {
	RequestID string `yaml:"request_id"`
	Success   bool   `yaml:"success"`
	ErrorKind string `yaml:"error_kind,omitempty"`
	Error     string `yaml:"error,omitempty"`
	IsRain    *bool  `yaml:"is_rain,omitempty"`
	Path      string `yaml:"path,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.seed, "seed", "", "YAML graph seed file")
	flag.StringVar(&opts.forecast, "forecast", "", "recorded provider response (JSON)")
	flag.StringVar(&opts.input, "input", "", "identifier of the input structure")
	flag.StringVar(&opts.city, "city", "", "city identifier (default: first member of concept_city)")
	flag.StringVar(&opts.date, "date", "", "date identifier (default: first member of concept_date)")
	flag.StringVar(&opts.requestID, "request-id", "replay", "request ID reported back")
	flag.Float64Var(&opts.threshold, "threshold", domain.DefaultRainThreshold, "rain probability threshold")
	flag.BoolVar(&opts.verbose, "v", false, "log enrichment steps to stderr")
	flag.Parse()

	if opts.seed == "" || opts.forecast == "" || opts.input == "" {
		flag.Usage()
		os.Exit(2)
	}

	if code := run(context.Background(), opts, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, err := memgraph.LoadSeedFile(ctx, opts.seed)
	if err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	}
	concepts, err := enrichment.ResolveConcepts(ctx, store)
	if err != nil {
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	}

	svc := enrichment.NewService(store, concepts, openweather.NewFileFetcher(opts.forecast),
		opts.threshold, logger, observability.NewMetricsForTesting())
	report := pipeline.NewHandler(svc, logger).HandleRequest(ctx, domain.ActionRequest{
		RequestID:      opts.requestID,
		Action:         domain.IdtfActionFillWeatherForecast,
		InputStructure: opts.input,
		City:           opts.city,
		Date:           opts.date,
	})

	out := result{
		Report: reportView{
			RequestID: report.RequestID,
			Success:   report.Success,
			ErrorKind: string(report.ErrorKind),
			Error:     report.Error,
			IsRain:    report.IsRain,
			Path:      string(report.Path),
		},
		Graph: store.ExportSeed(),
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "replay: encode: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "replay: encode: %v\n", err)
		return 1
	}

	if !report.Success {
		return 3
	}
	return 0
}
