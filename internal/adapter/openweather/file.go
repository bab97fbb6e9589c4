package openweather

import (
	"context"
	"fmt"
	"os"
)

// FileFetcher serves a recorded provider response from disk for every city.
type FileFetcher struct {
	path string
}

// NewFileFetcher creates a FileFetcher reading path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

// FetchForecast returns the file contents. The city is ignored.
func (f *FileFetcher) FetchForecast(_ context.Context, _ string) ([]byte, error) {
	body, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read recorded forecast: %w", err)
	}
	return body, nil
}
