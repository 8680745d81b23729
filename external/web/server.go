package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
)

const (
	defaultKeepAlive    = time.Second
	defaultVoiceTimeout = 5 * time.Second
	errorReply          = "Sorry, there was an error processing your message."
)

// Conversation is the part of the pipeline the web surface drives.
type Conversation interface {
	HandleTurn(ctx context.Context, text string) conversation.TurnResult
	ToggleVoiceInput(ctx context.Context) (bool, error)
	ClearHistory()
	VoiceAvailable() bool
	State() pipeline.State
}

type ServerConfig struct {
	KeepAlive    time.Duration
	VoiceTimeout time.Duration
}

type Server struct {
	conv   Conversation
	hub    *Hub
	device *BrowserDevice
	cfg    ServerConfig
	app    *fiber.App
}

func NewServer(conv Conversation, hub *Hub, device *BrowserDevice, cfg ServerConfig) *Server {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}
	if cfg.VoiceTimeout <= 0 {
		cfg.VoiceTimeout = defaultVoiceTimeout
	}
	s := &Server{
		conv:   conv,
		hub:    hub,
		device: device,
		cfg:    cfg,
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
	}
	s.routes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	slog.Info("web server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Post("/chat", s.handleChat)
	s.app.Post("/voice-input", s.handleVoiceInput)
	s.app.Post("/clear", s.handleClear)
	s.app.Get("/get-transcription", s.handleTranscription)

	s.app.Use("/ws/audio", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/audio", websocket.New(s.handleAudioSocket))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"voice_available": s.conv.VoiceAvailable(),
		"state":           s.conv.State().String(),
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "response": errorReply})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`message` field is required", "response": errorReply})
	}

	res := s.conv.HandleTurn(c.UserContext(), req.Message)
	return c.JSON(fiber.Map{
		"response": strings.TrimSpace(res.DisplayReply()),
		"status":   "success",
	})
}

func (s *Server) handleVoiceInput(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.VoiceTimeout)
	defer cancel()

	listening, err := s.conv.ToggleVoiceInput(ctx)
	if errors.Is(err, pipeline.ErrVoiceUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		slog.Error("voice input toggle failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if listening {
		return c.JSON(fiber.Map{"status": "started"})
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

func (s *Server) handleClear(c *fiber.Ctx) error {
	s.conv.ClearHistory()
	return c.JSON(fiber.Map{"status": "cleared"})
}

func (s *Server) handleTranscription(c *fiber.Ctx) error {
	events, unsubscribe := s.hub.Subscribe()
	keepAlive := s.cfg.KeepAlive

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeSSE(w, ev); err != nil {
					slog.Debug("sse client went away", "error", err)
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(":keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, ev TranscriptionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", body); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) handleAudioSocket(ws *websocket.Conn) {
	s.device.connected()
	defer s.device.disconnected()
	slog.Info("browser audio client connected", "remote", ws.RemoteAddr().String())

	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			slog.Info("browser audio client disconnected", "error", err)
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		s.device.Feed(msg)
	}
}
