package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-widget/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultGeocodingURL is the public Open-Meteo geocoding endpoint.
const DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// OpenMeteoGeocoder implements weather.Geocoder for the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	name    string
	baseURL string
	count   int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoGeocoder creates the geocoder. count limits the number of
// results requested; zero leaves the upstream default.
func NewOpenMeteoGeocoder(cfg HTTPClientConfig, baseURL string, count int) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocodingURL
	}
	return &OpenMeteoGeocoder{
		name:    "openmeteo",
		baseURL: baseURL,
		count:   count,
		httpCfg: cfg,
		circuit: newBreaker("openmeteo-geocoding", cfg),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return g.name
}

// Search returns matches for name. The upstream omits "results" entirely
// when nothing matches.
func (g *OpenMeteoGeocoder) Search(ctx context.Context, name string) ([]weather.Place, error) {
	values := url.Values{}
	values.Set("name", name)
	if g.count > 0 {
		values.Set("count", strconv.Itoa(g.count))
	}

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := getJSON(ctx, g.httpCfg, g.circuit, g.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrLookupFailed, err)
	}

	places := make([]weather.Place, 0, len(payload.Results))
	for _, r := range payload.Results {
		places = append(places, weather.Place{
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return places, nil
}
