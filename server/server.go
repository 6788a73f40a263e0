// Package server exposes the mind-map pipeline over HTTP using Echo,
// mirroring the JSON envelope and CORS conventions used throughout this
// codebase's REST surface.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/mindmapforge/core/model"
	"github.com/hrygo/mindmapforge/core/pipeline"
	"github.com/hrygo/mindmapforge/scrape"
	"github.com/hrygo/mindmapforge/store"
)

// Server holds the HTTP handlers' shared dependencies.
type Server struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	scraper  *scrape.Scraper
}

// New builds a Server. scraper may be nil; URL-sourced vectorize requests
// fail with a clear error if so.
func New(p *pipeline.Pipeline, s *store.Store, scraper *scrape.Scraper) *Server {
	return &Server{pipeline: p, store: s, scraper: scraper}
}

// RegisterRoutes wires the four endpoints and CORS middleware onto e.
func (srv *Server) RegisterRoutes(e *echo.Echo) {
	cors := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) { return true, nil },
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"*"},
	})

	api := e.Group("/api", cors)
	api.POST("/vectorize", srv.handleVectorize)
	api.GET("/texts-by-concept", srv.handleTextsByConcept)
	api.POST("/scenes", srv.handleSaveScene)
	api.GET("/scenes/:id", srv.handleGetScene)
}

// NewEcho builds an *echo.Echo with routes and a metrics endpoint wired in,
// ready to be started by the caller.
func (srv *Server) NewEcho(metricsHandler http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv.RegisterRoutes(e)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

func writeSuccess(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func writeError(c echo.Context, err error) error {
	status, detail := statusFor(err)
	slog.Error("server: request failed", "status", status, "error", err)
	return c.JSON(status, errorEnvelope{Success: false, Detail: detail})
}

// statusFor maps a pipeline error Kind to an HTTP status code. Errors that
// are not *model.Error are treated as internal failures.
func statusFor(err error) (int, string) {
	var mmErr *model.Error
	if !errors.As(err, &mmErr) {
		return http.StatusInternalServerError, err.Error()
	}

	switch mmErr.Kind {
	case model.KindInvalidInput, model.KindNoConceptsExtracted, model.KindUpstream, model.KindDimensionality:
		return http.StatusUnprocessableEntity, mmErr.Error()
	case model.KindSceneNotFound:
		return http.StatusNotFound, mmErr.Error()
	default:
		return http.StatusInternalServerError, mmErr.Error()
	}
}

type vectorizeRequest struct {
	Text   string `json:"text"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

func (srv *Server) handleVectorize(c echo.Context) error {
	var req vectorizeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, model.WrapError(model.KindInvalidInput, "malformed request body", err))
	}

	text := req.Text
	sourceURL := req.URL
	if text == "" && sourceURL != "" {
		if srv.scraper == nil {
			return writeError(c, model.NewError(model.KindInvalidInput, "URL-sourced vectorize requests are not enabled on this server"))
		}
		scraped, err := srv.scraper.Fetch(c.Request().Context(), sourceURL)
		if err != nil {
			return writeError(c, model.WrapError(model.KindInvalidInput, "failed to fetch URL", err))
		}
		text = scraped
	}

	userID := pipeline.ResolveUserID(req.UserID)
	result, err := srv.pipeline.Run(c.Request().Context(), userID, text, sourceURL)
	if err != nil {
		return writeError(c, err)
	}

	return writeSuccess(c, http.StatusOK, result.Groups)
}

func (srv *Server) handleTextsByConcept(c echo.Context) error {
	concept := c.QueryParam("concept")
	if concept == "" {
		return writeError(c, model.NewError(model.KindInvalidInput, "concept query parameter is required"))
	}
	userID := pipeline.ResolveUserID(c.QueryParam("user_id"))

	refs, err := srv.store.TextsByConcept(c.Request().Context(), userID, concept)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, http.StatusOK, refs)
}

type saveSceneRequest struct {
	UserID    string               `json:"user_id"`
	SceneData []model.ConceptGroup `json:"scene_data"`
	SceneID   string               `json:"scene_id"`
}

type saveSceneResponse struct {
	SceneID string `json:"scene_id"`
}

func (srv *Server) handleSaveScene(c echo.Context) error {
	var req saveSceneRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, model.WrapError(model.KindInvalidInput, "malformed request body", err))
	}
	if len(req.SceneData) == 0 {
		return writeError(c, model.NewError(model.KindInvalidInput, "scene must contain at least one group"))
	}

	sceneID := req.SceneID
	if sceneID == "" {
		sceneID = uuid.New().String()
	}

	userID := pipeline.ResolveUserID(req.UserID)
	scene := &model.Scene{
		ID:     sceneID,
		UserID: userID.String(),
		Groups: req.SceneData,
	}

	if err := srv.store.SaveScene(c.Request().Context(), scene); err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, http.StatusCreated, saveSceneResponse{SceneID: scene.ID})
}

func (srv *Server) handleGetScene(c echo.Context) error {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return writeError(c, model.NewError(model.KindInvalidInput, "scene id must be a valid UUID"))
	}

	scene, err := srv.store.GetScene(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, http.StatusOK, scene.Groups)
}
