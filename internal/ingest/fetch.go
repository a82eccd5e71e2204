package ingest

import (
	"context"
	"fmt"
	"net/http"

	rt "resin_tracker"
)

// Fetcher downloads a CSV export over HTTP.
type Fetcher struct {
	client  *http.Client
	decoder *Decoder
}

func NewFetcher(client *http.Client, decoder *Decoder) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, decoder: decoder}
}

// Fetch retrieves url and decodes the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]rt.Event, Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Stats{}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("request export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Stats{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	events, stats, err := f.decoder.Decode(resp.Body)
	if err != nil {
		return nil, stats, fmt.Errorf("decode export: %w", err)
	}
	return events, stats, nil
}
