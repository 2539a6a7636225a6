// Package api exposes the session stores over HTTP/JSON and a websocket stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// NewRouter wires every route onto a gin engine
func NewRouter(deps Dependencies) *gin.Engine {
	h := NewHandler(deps)

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/health", Health)

	api := r.Group("/api")
	api.POST("/login", h.Login)

	session := api.Group("")
	session.Use(AuthMiddleware(deps.Tokens, deps.Sessions))
	{
		session.POST("/logout", h.Logout)
		session.GET("/state", h.State)
		session.GET("/ws", h.Stream)
	}

	authed := session.Group("")
	authed.Use(RequireLogin())
	{
		authed.GET("/dashboard", h.Dashboard)
		authed.GET("/profile", h.Profile)
		authed.PATCH("/profile", h.UpdateProfile)
		authed.GET("/lab-result", h.LabResult)
		authed.PUT("/lab-result", h.UpdateLabResult)
		authed.GET("/lab-result/history", h.LabHistory)
		authed.GET("/diet-plan", h.DietPlan)
		authed.PUT("/diet-plan/selected", h.SelectDay)
		authed.GET("/diet-plan/:day", h.DietPlanDay)
		authed.GET("/activity", h.Activity)
		authed.PUT("/activity/:slot/:flag", h.UpdateActivity)
		authed.GET("/medication", h.Medication)
		authed.PUT("/medication", h.UpdateMedication)
		authed.POST("/navigate", h.Navigate)
		authed.GET("/trend", h.Trend)
		authed.GET("/advice", h.Advice)
	}

	return r
}

// Server runs the HTTP API
type Server struct {
	srv *http.Server
}

func NewServer(addr string, deps Dependencies) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTP API shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
