package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-widget/internal/common"
	"github.com/i474232898/weather-widget/internal/weather"
)

// googleAPIKeyMu guards the package-level key of the geocoder library.
var googleAPIKeyMu sync.Mutex

// geocodeFunc is the library call, swapped out in tests.
type geocodeFunc func(address geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder implements weather.Geocoder on top of the Google Geocoding
// API. It returns at most one place.
//
// The library owns its HTTP client, so only the client timeout and the
// breaker settings of HTTPClientConfig apply; retries do not.
type GoogleGeocoder struct {
	name    string
	timeout time.Duration
	geocode geocodeFunc
	circuit *gobreaker.CircuitBreaker
}

// NewGoogleGeocoder configures the library with apiKey.
func NewGoogleGeocoder(cfg HTTPClientConfig, apiKey string) (*GoogleGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("google geocoder api key is not configured")
	}

	googleAPIKeyMu.Lock()
	geocoder.ApiKey = apiKey
	googleAPIKeyMu.Unlock()

	var timeout time.Duration
	if cfg.Client != nil {
		timeout = cfg.Client.Timeout
	}

	return &GoogleGeocoder{
		name:    "google",
		timeout: timeout,
		geocode: geocoder.Geocoding,
		circuit: newBreaker("google-geocoding", cfg),
	}, nil
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

type googleResult struct {
	loc   geocoder.Location
	found bool
	err   error
}

// Search geocodes name as a city. The library call is not context aware, so
// a cancelled ctx abandons it. The abandoned call counts as a breaker failure.
func (g *GoogleGeocoder) Search(ctx context.Context, name string) ([]weather.Place, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.circuit.Execute(func() (interface{}, error) {
		geocode := g.geocode
		ch := make(chan googleResult, 1)
		go func() {
			loc, callErr := geocode(geocoder.Address{City: name})
			ch <- googleResult{loc: loc, found: callErr == nil, err: callErr}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			// No match is an answer, not an upstream failure.
			if r.err != nil && common.HasAnyFold(r.err.Error(), "ZERO_RESULTS", "no results") {
				return googleResult{}, nil
			}
			if r.err != nil {
				return nil, r.err
			}
			return r, nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrLookupFailed, err)
	}

	res := out.(googleResult)
	if !res.found {
		return nil, nil
	}
	return []weather.Place{{
		Name:      name,
		Latitude:  res.loc.Latitude,
		Longitude: res.loc.Longitude,
	}}, nil
}
