package weather

import "errors"

var (
	// ErrWeatherUnavailable is returned when the weather service response has
	// no usable current conditions.
	ErrWeatherUnavailable = errors.New("Failed to fetch weather data")

	// ErrCityNotFound is returned when geocoding yields no results.
	ErrCityNotFound = errors.New("City not found")

	// ErrLookupFailed is returned when the geocoding service could not be
	// reached or returned an unusable response.
	ErrLookupFailed = errors.New("Failed to look up city")
)

// GeoFailure classifies why the platform could not produce a position.
type GeoFailure int

const (
	FailureUnknown GeoFailure = iota
	FailurePermissionDenied
	FailurePositionUnavailable
	FailureTimeout
	FailureUnsupported
)

// GeoFailureFromCode maps a W3C GeolocationPositionError code.
func GeoFailureFromCode(code int) GeoFailure {
	switch code {
	case 1:
		return FailurePermissionDenied
	case 2:
		return FailurePositionUnavailable
	case 3:
		return FailureTimeout
	default:
		return FailureUnknown
	}
}

// Message is the user-facing text for the failure.
func (f GeoFailure) Message() string {
	switch f {
	case FailurePermissionDenied:
		return "You denied the request for Geolocation."
	case FailurePositionUnavailable:
		return "Location information is unavailable."
	case FailureTimeout:
		return "The request to get user location timed out."
	case FailureUnsupported:
		return "Geolocation is not supported by this browser."
	default:
		return "An unknown error occurred."
	}
}

func (f GeoFailure) String() string {
	switch f {
	case FailurePermissionDenied:
		return "permission_denied"
	case FailurePositionUnavailable:
		return "position_unavailable"
	case FailureTimeout:
		return "timeout"
	case FailureUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// LocationError is returned by a Locator that failed to produce a position.
type LocationError struct {
	Failure GeoFailure
}

func (e *LocationError) Error() string {
	return e.Failure.Message()
}

// userMessage returns the text shown for err. Wrapped sentinels surface their
// own text so transport detail never reaches the view.
func userMessage(err error) string {
	var le *LocationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &le):
		return le.Error()
	case errors.Is(err, ErrCityNotFound):
		return ErrCityNotFound.Error()
	case errors.Is(err, ErrWeatherUnavailable):
		return ErrWeatherUnavailable.Error()
	case errors.Is(err, ErrLookupFailed):
		return ErrLookupFailed.Error()
	default:
		return err.Error()
	}
}
