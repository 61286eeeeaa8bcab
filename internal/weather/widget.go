package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CoordinatesKey is the session store key holding the user's coordinates.
const CoordinatesKey = "user-coordinates"

type errorSlot int

const (
	slotLocation errorSlot = iota
	slotSearch
)

// Widget holds the state of one weather widget and orchestrates the calls to
// the geocoding and weather services.
//
// Every request-starting operation takes a new request token. Only the
// response carrying the latest token may change state; anything older is
// dropped. Network calls run without holding the lock.
type Widget struct {
	forecaster Forecaster
	geocoder   Geocoder
	session    SessionStore
	logger     *zap.Logger

	mu           sync.Mutex
	token        uint64
	mode         Mode
	coords       *Coordinates
	reading      *Reading
	loading      bool
	locationErr  error
	searchErr    error
	searchText   string
	searchedCity string
}

// NewWidget creates a widget in MyLocation mode. Call Load to restore
// coordinates cached by an earlier page load of the same session.
func NewWidget(forecaster Forecaster, geocoder Geocoder, session SessionStore, logger *zap.Logger) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Widget{
		forecaster: forecaster,
		geocoder:   geocoder,
		session:    session,
		logger:     logger,
		mode:       ModeMyLocation,
	}
}

// Load reads the session store once. When coordinates are cached and the
// widget is in MyLocation mode the weather is fetched right away.
func (w *Widget) Load(ctx context.Context) error {
	raw, ok, err := w.session.Get(ctx, CoordinatesKey)
	if err != nil {
		return fmt.Errorf("read session coordinates: %w", err)
	}
	if !ok {
		return nil
	}

	var coords Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		w.logger.Warn("discarding malformed session coordinates", zap.Error(err))
		return nil
	}

	w.mu.Lock()
	w.coords = &coords
	fetch := w.mode == ModeMyLocation
	w.mu.Unlock()

	if fetch {
		// The outcome is recorded in the widget state.
		_ = w.FetchWeather(ctx, coords)
	}
	return nil
}

// RequestLocationAccess asks the platform for the current position. A nil
// locator means the platform has no geolocation capability.
func (w *Widget) RequestLocationAccess(ctx context.Context, locator Locator) error {
	if locator == nil {
		le := &LocationError{Failure: FailureUnsupported}
		w.mu.Lock()
		w.locationErr = le
		w.mu.Unlock()
		return le
	}

	w.mu.Lock()
	w.locationErr = nil
	seen := w.token
	w.mu.Unlock()

	coords, err := locator.CurrentPosition(ctx)
	if err != nil {
		var le *LocationError
		if !errors.As(err, &le) {
			w.logger.Debug("geolocation failed without a failure code", zap.Error(err))
			le = &LocationError{Failure: FailureUnknown}
		}
		w.mu.Lock()
		if w.token == seen {
			w.locationErr = le
		}
		w.mu.Unlock()
		return le
	}

	raw, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("encode coordinates: %w", err)
	}
	if err := w.session.Set(ctx, CoordinatesKey, raw); err != nil {
		w.logger.Warn("failed to cache coordinates in session", zap.Error(err))
	}

	w.mu.Lock()
	w.coords = &coords
	fetch := w.mode == ModeMyLocation
	w.mu.Unlock()

	if fetch {
		return w.FetchWeather(ctx, coords)
	}
	return nil
}

// FetchWeather loads the current reading for coords.
func (w *Widget) FetchWeather(ctx context.Context, coords Coordinates) error {
	token := w.begin(false)
	return w.fetchWeather(ctx, token, coords, slotLocation)
}

// FetchWeatherByCity geocodes city and loads the weather of the first match.
// The cached MyLocation coordinates are left untouched. Blank input is ignored.
func (w *Widget) FetchWeatherByCity(ctx context.Context, city string) error {
	if strings.TrimSpace(city) == "" {
		return nil
	}

	token := w.begin(true)
	w.update(token, func() { w.searchText = city })

	w.logger.Debug("geocoding city",
		zap.String("geocoder", w.geocoder.Name()),
		zap.String("city", city),
		zap.Uint64("token", token))

	places, err := w.geocoder.Search(ctx, city)
	switch {
	case err != nil && !errors.Is(err, ErrCityNotFound):
		w.logger.Warn("geocoding failed", zap.String("city", city), zap.Error(err))
		if !errors.Is(err, ErrLookupFailed) {
			err = fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
	case err == nil && len(places) == 0:
		err = ErrCityNotFound
	}
	if err != nil {
		if !w.finish(token, func() { w.fail(slotSearch, err) }) {
			w.logger.Debug("discarding superseded geocoding response", zap.Uint64("token", token))
			return nil
		}
		return err
	}

	place := places[0]
	if !w.update(token, func() { w.searchedCity = city }) {
		w.logger.Debug("discarding superseded geocoding response", zap.Uint64("token", token))
		return nil
	}
	return w.fetchWeather(ctx, token, place.Coordinates(), slotSearch)
}

// SwitchMode activates target and resets transient state. Requests still in
// flight are superseded. Entering MyLocation with cached coordinates fetches
// the weather again.
func (w *Widget) SwitchMode(ctx context.Context, target Mode) error {
	if !target.Valid() {
		return fmt.Errorf("unknown mode %q", target)
	}

	w.mu.Lock()
	w.token++
	w.mode = target
	w.loading = false
	w.reading = nil
	w.locationErr = nil
	w.searchErr = nil
	w.searchedCity = ""

	var coords *Coordinates
	if target == ModeMyLocation {
		w.searchText = ""
		if w.coords != nil {
			c := *w.coords
			coords = &c
		}
	}
	w.mu.Unlock()

	if coords != nil {
		return w.FetchWeather(ctx, *coords)
	}
	return nil
}

// SetSearchText mirrors the search input field.
func (w *Widget) SetSearchText(text string) {
	w.mu.Lock()
	w.searchText = text
	w.mu.Unlock()
}

// State returns a snapshot of the widget.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := State{
		Mode:          w.mode,
		Loading:       w.loading,
		LocationError: userMessage(w.locationErr),
		SearchError:   userMessage(w.searchErr),
		SearchText:    w.searchText,
		SearchedCity:  w.searchedCity,
	}
	if w.coords != nil {
		c := *w.coords
		s.Coordinates = &c
	}
	if w.reading != nil {
		r := *w.reading
		s.Reading = &r
	}
	return s
}

func (w *Widget) fetchWeather(ctx context.Context, token uint64, coords Coordinates, slot errorSlot) error {
	w.logger.Debug("fetching weather",
		zap.String("forecaster", w.forecaster.Name()),
		zap.Stringer("coordinates", coords),
		zap.Uint64("token", token))

	reading, err := w.forecaster.Current(ctx, coords)
	if err != nil {
		w.logger.Warn("weather fetch failed", zap.Stringer("coordinates", coords), zap.Error(err))
		if !errors.Is(err, ErrWeatherUnavailable) {
			err = fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
		}
	}

	applied := w.finish(token, func() {
		if err != nil {
			w.fail(slot, err)
			return
		}
		w.reading = &reading
	})
	if !applied {
		w.logger.Debug("discarding superseded weather response", zap.Uint64("token", token))
		return nil
	}
	return err
}

// begin starts a request and returns its token.
func (w *Widget) begin(clearSearch bool) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.token++
	w.loading = true
	w.locationErr = nil
	if clearSearch {
		w.searchErr = nil
	}
	return w.token
}

// update applies fn when token is still current.
func (w *Widget) update(token uint64, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if token != w.token {
		return false
	}
	fn()
	return true
}

// finish applies fn and ends loading when token is still current.
func (w *Widget) finish(token uint64, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if token != w.token {
		return false
	}
	fn()
	w.loading = false
	return true
}

// fail must be called with mu held.
func (w *Widget) fail(slot errorSlot, err error) {
	w.reading = nil
	switch slot {
	case slotSearch:
		w.searchErr = err
	default:
		w.locationErr = err
	}
}
