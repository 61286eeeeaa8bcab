package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-widget/internal/session"
	"github.com/i474232898/weather-widget/internal/store"
	"github.com/i474232898/weather-widget/internal/weather"
)

type stubForecaster struct{}

func (stubForecaster) Name() string { return "stub" }

func (stubForecaster) Current(context.Context, weather.Coordinates) (weather.Reading, error) {
	return weather.Reading{Temperature: 20, WindSpeed: 5, Humidity: 40}, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Name() string { return "stub" }

func (stubGeocoder) Search(_ context.Context, name string) ([]weather.Place, error) {
	if name == "Atlantis" {
		return nil, nil
	}
	return []weather.Place{{Name: name, Latitude: 51.5, Longitude: -0.1}}, nil
}

func newTestApp() *fiber.App {
	app := fiber.New()
	manager := session.NewManager(store.NewMemoryStore(), stubForecaster{}, stubGeocoder{}, time.Hour, nil)
	RegisterRoutes(app, manager, 5*time.Second, nil)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, widgetResponse) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out widgetResponse
	if resp.StatusCode < 300 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, out
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, out := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	if out.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	return out.SessionID
}

func TestCreateSession(t *testing.T) {
	app := newTestApp()

	resp, out := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	// The id travels in the path only.
	if got := resp.Header.Get("Set-Cookie"); got != "" {
		t.Fatalf("unexpected cookie %q", got)
	}
	if out.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if out.State.Mode != weather.ModeMyLocation || !out.View.GrantAccess {
		t.Fatalf("unexpected initial widget %+v", out)
	}
}

func TestUnknownSession(t *testing.T) {
	app := newTestApp()

	resp, _ := do(t, app, http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000000", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestReportLocation(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	resp, out := do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/location",
		`{"supported": true, "latitude": 51.5, "longitude": -0.1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if out.View.Heading != "Current Weather Info" {
		t.Fatalf("unexpected heading %q", out.View.Heading)
	}
	if len(out.View.Lines) != 3 || out.View.Lines[0] != "Temperature: 20°C" {
		t.Fatalf("unexpected lines %v", out.View.Lines)
	}

	// The coordinates are reused when the session is fetched again.
	_, again := do(t, app, http.MethodGet, "/api/v1/sessions/"+id, "")
	if again.State.Coordinates == nil || again.State.Coordinates.Latitude != 51.5 {
		t.Fatalf("coordinates not kept in session: %+v", again.State)
	}
}

func TestReportLocationFailures(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"supported": false}`, "Geolocation is not supported by this browser."},
		{`{"supported": true, "error_code": 1}`, "You denied the request for Geolocation."},
		{`{"supported": true, "error_code": 2}`, "Location information is unavailable."},
		{`{"supported": true, "error_code": 3}`, "The request to get user location timed out."},
		{`{"supported": true, "error_code": 9}`, "An unknown error occurred."},
	}

	app := newTestApp()
	for _, tt := range tests {
		id := createSession(t, app)
		resp, out := do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/location", tt.body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", tt.body, http.StatusOK, resp.StatusCode)
		}
		if out.View.Error != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.body, tt.want, out.View.Error)
		}
	}
}

func TestReportLocationValidation(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	for _, body := range []string{
		`{}`,
		`{"supported": true}`,
		`{"supported": true, "latitude": 91, "longitude": 0}`,
		`not json`,
	} {
		resp, _ := do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/location", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", body, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestSearchFlow(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	resp, out := do(t, app, http.MethodPut, "/api/v1/sessions/"+id+"/mode", `{"mode": "search_by_city"}`)
	if resp.StatusCode != http.StatusOK || out.View.SearchForm == nil {
		t.Fatalf("expected the search form, got status %d view %+v", resp.StatusCode, out.View)
	}

	_, out = do(t, app, http.MethodPut, "/api/v1/sessions/"+id+"/search-text", `{"text": "Lon"}`)
	if out.View.SearchForm.Value != "Lon" {
		t.Fatalf("search text not mirrored: %+v", out.View.SearchForm)
	}

	_, out = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/search", `{"city": "London"}`)
	if out.View.Heading != "Weather Info for London" {
		t.Fatalf("unexpected heading %q", out.View.Heading)
	}

	_, out = do(t, app, http.MethodPost, "/api/v1/sessions/"+id+"/search", `{"city": "Atlantis"}`)
	if out.View.Error != "City not found" || out.View.Heading != "" {
		t.Fatalf("unexpected view after failed search %+v", out.View)
	}
}

func TestSearchValidation(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	for path, body := range map[string]string{
		"/search": `{"city": ""}`,
		"/mode":   `{"mode": "forecast"}`,
	} {
		method := http.MethodPost
		if path == "/mode" {
			method = http.MethodPut
		}
		resp, _ := do(t, app, method, "/api/v1/sessions/"+id+path, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestTextView(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/view?format=text", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Allow Access To Get Weather Information") {
		t.Fatalf("unexpected text view %q", body)
	}
}

func TestEndSession(t *testing.T) {
	app := newTestApp()
	id := createSession(t, app)

	resp, _ := do(t, app, http.MethodDelete, "/api/v1/sessions/"+id, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	resp, _ = do(t, app, http.MethodGet, "/api/v1/sessions/"+id, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected index response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
