package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-widget/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultForecastURL is the public Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// HourlySeries is the hourly variable list requested from the forecast API.
const HourlySeries = "temperature_2m,relative_humidity_2m,wind_speed_10m"

// OpenMeteoProvider implements weather.Forecaster for the Open-Meteo forecast API.
type OpenMeteoProvider struct {
	name          string
	baseURL       string
	windSpeedUnit string
	httpCfg       HTTPClientConfig
	circuit       *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates the forecast provider. An empty baseURL selects
// the public endpoint; an empty windSpeedUnit leaves the upstream default.
func NewOpenMeteoProvider(cfg HTTPClientConfig, baseURL, windSpeedUnit string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &OpenMeteoProvider{
		name:          "openmeteo",
		baseURL:       baseURL,
		windSpeedUnit: windSpeedUnit,
		httpCfg:       cfg,
		circuit:       newBreaker("openmeteo-forecast", cfg),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoForecast struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		Time        string  `json:"time"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
	Hourly struct {
		Time               []string  `json:"time"`
		Temperature2m      []float64 `json:"temperature_2m"`
		RelativeHumidity2m []float64 `json:"relative_humidity_2m"`
		WindSpeed10m       []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Current fetches the current conditions. Humidity comes from the first
// hourly sample because current_weather carries none.
func (p *OpenMeteoProvider) Current(ctx context.Context, coords weather.Coordinates) (weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	values.Set("current_weather", "true")
	values.Set("hourly", HourlySeries)
	if p.windSpeedUnit != "" {
		values.Set("wind_speed_unit", p.windSpeedUnit)
	}

	var payload openMeteoForecast
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrWeatherUnavailable, err)
	}

	if payload.CurrentWeather == nil {
		return weather.Reading{}, fmt.Errorf("%w: response has no current_weather", weather.ErrWeatherUnavailable)
	}
	if len(payload.Hourly.RelativeHumidity2m) == 0 {
		return weather.Reading{}, fmt.Errorf("%w: response has no hourly humidity", weather.ErrWeatherUnavailable)
	}

	return weather.Reading{
		Temperature: payload.CurrentWeather.Temperature,
		WindSpeed:   payload.CurrentWeather.WindSpeed,
		Humidity:    payload.Hourly.RelativeHumidity2m[0],
	}, nil
}
