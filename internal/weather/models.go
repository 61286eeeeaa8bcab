package weather

import "fmt"

// Mode is the active widget view.
type Mode string

const (
	ModeMyLocation   Mode = "my_location"
	ModeSearchByCity Mode = "search_by_city"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeMyLocation || m == ModeSearchByCity
}

// Coordinates is a latitude/longitude pair.
// The JSON shape matches what the browser client stores in sessionStorage.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g,%g", c.Latitude, c.Longitude)
}

// Reading is the normalized weather triple shown to the user.
//
// Humidity is the first sample of the hourly relative humidity series, not a
// current value: the upstream current_weather block has no humidity field.
type Reading struct {
	Temperature float64 `json:"temperature"` // °C
	WindSpeed   float64 `json:"windSpeed"`   // m/s
	Humidity    float64 `json:"humidity"`    // %
}

// Place is a single geocoding result.
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the location of the place.
func (p Place) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// State is an immutable snapshot of a widget.
type State struct {
	Mode          Mode         `json:"mode"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Reading       *Reading     `json:"reading,omitempty"`
	Loading       bool         `json:"loading"`
	LocationError string       `json:"locationError,omitempty"`
	SearchError   string       `json:"searchError,omitempty"`
	SearchText    string       `json:"searchText"`
	SearchedCity  string       `json:"searchedCity,omitempty"`
}
