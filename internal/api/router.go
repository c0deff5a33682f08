package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "qrgen/internal/api/context"
	"qrgen/internal/api/handlers"
	"qrgen/internal/api/middleware"
	"qrgen/internal/pkg/errors"
)

type Dependencies struct {
	PageHandler        *handlers.PageHandler
	WorkflowHandler    *handlers.WorkflowHandler
	DiagnosticsHandler *handlers.DiagnosticsHandler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     *handlers.MetricsHandler
	SessionMiddleware  *middleware.SessionMiddleware
	RateLimiter        *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	identify := deps.SessionMiddleware.Identify
	attach := deps.SessionMiddleware.Attach
	apiLimit := deps.RateLimiter.Limit(middleware.LimitAPI)
	generateLimit := deps.RateLimiter.Limit(middleware.LimitGenerate)

	// Presentation page
	router.GET("/", chain(deps.PageHandler.Index, identify, apiLimit, attach))

	// Workflow events
	router.GET("/api/v1/state",
		chain(deps.WorkflowHandler.State, identify, apiLimit, attach))
	router.PUT("/api/v1/input",
		chain(deps.WorkflowHandler.SetInput, identify, apiLimit, attach))
	router.POST("/api/v1/examples/:name",
		chain(deps.WorkflowHandler.LoadExample, identify, apiLimit, attach))
	router.POST("/api/v1/generate",
		chain(deps.WorkflowHandler.Generate, identify, generateLimit, attach))
	router.DELETE("/api/v1/generate",
		chain(deps.WorkflowHandler.Cancel, identify, apiLimit, attach))
	router.GET("/api/v1/download",
		chain(deps.WorkflowHandler.Download, identify, apiLimit, attach))
	router.GET("/api/v1/image",
		chain(deps.WorkflowHandler.Image, identify, apiLimit, attach))

	// Operations
	router.GET("/api/v1/diagnostics/events", wrap(deps.DiagnosticsHandler.List))
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
