package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"blocdesk/app/config"
	"blocdesk/app/service/content"
	"blocdesk/app/service/decision"
	"blocdesk/app/service/session"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

type Server struct {
	cfg        *config.Config
	store      *session.Store
	engine     *decision.Service
	contentSvc content.Store
	fiberApp   *fiber.App
}

type decideRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type decideResponse struct {
	decision.Decision
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:        do.MustInvoke[*config.Config](di),
		store:      do.MustInvoke[*session.Store](di),
		engine:     do.MustInvoke[*decision.Service](di),
		contentSvc: do.MustInvoke[content.Store](di),
	}

	s.fiberApp = fiber.New(fiber.Config{
		AppName:               "blocdesk",
		DisableStartupMessage: true,
	})

	s.fiberApp.Post("/decide", s.handleDecide)
	s.fiberApp.Get("/health", s.handleHealth)
	s.fiberApp.Get("/sessions/:id", s.handleSessionState)
	s.fiberApp.Delete("/sessions/:id", s.handleClearSession)
	s.fiberApp.Get("/stats", s.handleStats)

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("API shutdown failed", "error", err)
		}
	}()

	slog.Info("API listening", "addr", s.cfg.Server.Addr)

	if err := s.fiberApp.Listen(s.cfg.Server.Addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (s *Server) handleDecide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", "request body must be JSON")
	}

	if req.SessionID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", "session_id is required")
	}
	if req.Message == "" {
		return errorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", "message is required")
	}

	d := s.engine.Decide(req.SessionID, req.Message)

	resp := decideResponse{
		Decision:  d,
		SessionID: req.SessionID,
	}
	if text, ok := s.contentSvc.Resolve(d.BlocID); ok {
		resp.Text = text
	}

	return c.JSON(resp)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"stats":  s.store.Stats(),
	})
}

func (s *Server) handleSessionState(c *fiber.Ctx) error {
	state, ok := s.store.Snapshot(c.Params("id"))
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "unknown session")
	}

	return c.JSON(state)
}

func (s *Server) handleClearSession(c *fiber.Ctx) error {
	s.store.Clear(c.Params("id"))

	return c.JSON(fiber.Map{"status": "cleared"})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.store.Stats())
}

func errorResponse(c *fiber.Ctx, status int, errType, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":     "error",
		"error_type": errType,
		"message":    message,
	})
}
