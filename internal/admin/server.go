package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velmor/dnslinkbot/internal/service"
)

// Server is the operator HTTP surface. It reuses the same services as the
// chat gateway, so policy changes made here are picked up by the next bot
// request.
type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	users    *service.UserService
	domains  *service.DomainService
	settings *service.SettingsService
	bot      *tgbotapi.BotAPI
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users *service.UserService, domains *service.DomainService, settings *service.SettingsService, bot *tgbotapi.BotAPI) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		users:    users,
		domains:  domains,
		settings: settings,
		bot:      bot,
		router:   r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/stats", s.handleStats)
		protected.Post("/broadcast", s.handleBroadcast)
		protected.Route("/settings/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetSetting)
			r.Put("/", s.handlePutSetting)
		})
		protected.Post("/users/{id}/ban", s.handleBan)
		protected.Post("/users/{id}/unban", s.handleUnban)
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.users.Count(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	banned, err := s.users.CountBanned(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	domains, err := s.domains.CountAll(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	enabled, err := s.settings.BotEnabled(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	channels, err := s.settings.ForceChannels(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"users":          users,
		"banned":         banned,
		"domains":        domains,
		"enabled":        enabled,
		"force_channels": channels,
	})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// handleBroadcast fans out a message to every non-banned user. Delivery
// failures are counted but never abort the remaining sends.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	ids, err := s.users.ListActiveIDs(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	sent, failed := 0, 0
	for _, id := range ids {
		if _, err := s.bot.Send(tgbotapi.NewMessage(id, req.Message)); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			failed++
			continue
		}
		sent++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":   sent,
		"failed": failed,
		"total":  len(ids),
	})
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	value, err := s.settings.Get(r.Context(), name, "")
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": value})
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.settings.Set(r.Context(), name, req.Value); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name, "value": req.Value})
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, true)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, false)
}

func (s *Server) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.users.SetBanned(r.Context(), id, banned); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "banned": banned})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="dnslinkbot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
