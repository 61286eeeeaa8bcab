package httpapi

import (
	"context"
	"errors"

	"github.com/i474232898/weather-widget/internal/weather"
)

// locationReport is what the browser observed when it ran
// navigator.geolocation.getCurrentPosition on behalf of the widget.
type locationReport struct {
	Supported *bool    `json:"supported" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	ErrorCode *int     `json:"error_code" validate:"omitempty,min=0"`
}

func (r locationReport) check() error {
	if !*r.Supported || r.ErrorCode != nil {
		return nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return errors.New("latitude and longitude are required when no error_code is reported")
	}
	return nil
}

// locator replays the report. A browser without geolocation yields nil.
func (r locationReport) locator() weather.Locator {
	if !*r.Supported {
		return nil
	}
	return weather.LocatorFunc(func(context.Context) (weather.Coordinates, error) {
		if r.ErrorCode != nil {
			return weather.Coordinates{}, &weather.LocationError{Failure: weather.GeoFailureFromCode(*r.ErrorCode)}
		}
		return weather.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}, nil
	})
}
