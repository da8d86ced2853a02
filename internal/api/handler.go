package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rflyhigh/pinnedthoughts/internal/config"
	"github.com/rflyhigh/pinnedthoughts/internal/db"
	"github.com/rflyhigh/pinnedthoughts/internal/llm"
)

type Handler struct {
	db     *db.Database
	llm    *llm.Service
	cfg    *config.Config
	logger *zap.Logger
}

func NewHandler(database *db.Database, llmService *llm.Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		db:     database,
		llm:    llmService,
		cfg:    cfg,
		logger: logger,
	}
}

// Routes wires the REST surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/health", h.Health)
	r.Get("/models", h.Models)
	r.Post("/chat", h.SendMessage)
	r.Get("/chats", h.ListChats)
	r.Get("/chats/{chatID}", h.GetChat)
	r.Put("/chats/{chatID}/title", h.UpdateTitle)
	r.Delete("/chats/{chatID}", h.DeleteChat)

	return r
}

type chatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
	Model   string `json:"model"`
}

type chatResponse struct {
	ChatID   string `json:"chat_id"`
	Message  string `json:"message"`
	Response string `json:"response"`
}

type chatDetailResponse struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []messageView `json:"messages"`
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"models": h.cfg.Models})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.llm.SendMessage(r.Context(), req.Message, req.ChatID, req.Model)
	if err != nil {
		h.logger.Error("failed to process message",
			zap.Error(err),
			zap.String("chat_id", req.ChatID))
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ChatID:   result.ChatID,
		Message:  result.Message,
		Response: result.Response,
	})
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.db.ListChats()
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	chat, err := h.db.GetChat(chatID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	messages, err := h.db.ListMessages(chatID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, messageView{Role: msg.Role, Content: msg.Content})
	}

	respondJSON(w, http.StatusOK, chatDetailResponse{
		ID:        chat.ID,
		Title:     chat.Title,
		Model:     chat.Model,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
		Messages:  views,
	})
}

func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			title = strings.TrimSpace(payload.Title)
		}
	}
	if title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.db.RenameChat(chatID, title); err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "title": title})
}

func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := h.db.DeleteChat(chatID); err != nil {
		h.logger.Error("failed to delete chat", zap.Error(err), zap.String("chat_id", chatID))
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondError(w, http.StatusNotFound, "Chat not found")
	case errors.Is(err, llm.ErrUpstream):
		respondError(w, http.StatusInternalServerError, "Failed to get response from AI model")
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
