package weather

import (
	"context"
)

// Forecaster abstracts the weather service (e.g. Open-Meteo forecast).
type Forecaster interface {
	Name() string
	Current(ctx context.Context, coords Coordinates) (Reading, error)
}

// Geocoder resolves a free-text place name to candidate places, best first.
// An empty slice with a nil error means nothing matched.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, name string) ([]Place, error)
}

// Locator is the platform geolocation capability. Failures should be
// reported as *LocationError.
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (Coordinates, error) {
	return f(ctx)
}

// SessionStore is a key-value store scoped to one browser session.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
