package httpapi

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-widget/internal/session"
	"github.com/i474232898/weather-widget/internal/weather"
)

var validate = validator.New()

//go:embed static/index.html
var indexHTML []byte

type handlers struct {
	manager *session.Manager
	timeout time.Duration
	logger  *zap.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. timeout bounds
// each widget operation including its upstream calls.
func RegisterRoutes(app *fiber.App, manager *session.Manager, timeout time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{manager: manager, timeout: timeout, logger: logger}

	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(indexHTML)
	})

	v1 := app.Group("/api/v1")

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.withWidget(h.getState))
	v1.Delete("/sessions/:id", h.endSession)
	v1.Get("/sessions/:id/view", h.withWidget(h.getView))
	v1.Put("/sessions/:id/mode", h.withWidget(h.switchMode))
	v1.Post("/sessions/:id/location", h.withWidget(h.reportLocation))
	v1.Put("/sessions/:id/search-text", h.withWidget(h.setSearchText))
	v1.Post("/sessions/:id/search", h.withWidget(h.search))
}

// widgetResponse is returned by every widget operation so the client can
// re-render from a single round trip.
type widgetResponse struct {
	SessionID string        `json:"session_id"`
	State     weather.State `json:"state"`
	View      weather.View  `json:"view"`
}

func respond(c *fiber.Ctx, id string, w *weather.Widget) error {
	state := w.State()
	return c.JSON(widgetResponse{
		SessionID: id,
		State:     state,
		View:      weather.Render(state),
	})
}

type widgetHandler func(c *fiber.Ctx, ctx context.Context, w *weather.Widget) error

func (h *handlers) withWidget(next widgetHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
		defer cancel()

		w, err := h.manager.Get(ctx, c.Params("id"))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "session not found")
			}
			h.logger.Error("failed to load session", zap.String("session_id", c.Params("id")), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load session")
		}
		return next(c, ctx, w)
	}
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id, w, err := h.manager.Create(ctx)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}

	c.Status(fiber.StatusCreated)
	return respond(c, id, w)
}

func (h *handlers) endSession(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.manager.End(ctx, c.Params("id")); err != nil {
		h.logger.Error("failed to end session", zap.String("session_id", c.Params("id")), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to end session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) getState(c *fiber.Ctx, _ context.Context, w *weather.Widget) error {
	return respond(c, c.Params("id"), w)
}

func (h *handlers) getView(c *fiber.Ctx, _ context.Context, w *weather.Widget) error {
	view := weather.Render(w.State())
	if c.Query("format") == "text" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(view.Text())
	}
	return c.JSON(view)
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=my_location search_by_city"`
}

func (h *handlers) switchMode(c *fiber.Ctx, ctx context.Context, w *weather.Widget) error {
	var req modeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	// Upstream failures are recorded in the widget state.
	_ = w.SwitchMode(ctx, weather.Mode(req.Mode))
	return respond(c, c.Params("id"), w)
}

func (h *handlers) reportLocation(c *fiber.Ctx, ctx context.Context, w *weather.Widget) error {
	var req locationReport
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.check(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	_ = w.RequestLocationAccess(ctx, req.locator())
	return respond(c, c.Params("id"), w)
}

type searchTextRequest struct {
	Text string `json:"text" validate:"max=200"`
}

func (h *handlers) setSearchText(c *fiber.Ctx, _ context.Context, w *weather.Widget) error {
	var req searchTextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	w.SetSearchText(req.Text)
	return respond(c, c.Params("id"), w)
}

type searchRequest struct {
	City string `json:"city" validate:"required,max=200"`
}

func (h *handlers) search(c *fiber.Ctx, ctx context.Context, w *weather.Widget) error {
	var req searchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	_ = w.FetchWeatherByCity(ctx, req.City)
	return respond(c, c.Params("id"), w)
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
