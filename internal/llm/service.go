package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/rflyhigh/pinnedthoughts/internal/config"
	"github.com/rflyhigh/pinnedthoughts/internal/db"
	"github.com/rflyhigh/pinnedthoughts/internal/models"
)

// ErrUpstream reports that the completion provider call failed. The caller may
// retry the whole send; retries append a fresh user/assistant message pair.
var ErrUpstream = errors.New("completion provider request failed")

const (
	fallbackTitle = "New Conversation"
	maxTitleLen   = 30

	titleSystemPrompt = "You are a helpful assistant that generates short, descriptive titles."
	systemPrompt      = "You are a thoughtful assistant engaging in deep, meaningful conversations. Provide insightful, nuanced responses that encourage reflection."
)

type Service struct {
	llm    llms.Model
	db     *db.Database
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, database *db.Database, logger *zap.Logger) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.DefaultModel),
	)
	if err != nil {
		return nil, err
	}
	return &Service{llm: llm, db: database, cfg: cfg, logger: logger}, nil
}

type SendResult struct {
	ChatID   string
	Message  string
	Response string
}

// SendMessage runs one conversation turn: it resolves or creates the chat,
// assembles the context window from stored history, persists the user message,
// asks the provider for a reply, and persists that reply.
//
// The user message is committed before the provider call and is deliberately
// not rolled back when that call fails, so a failed send leaves the user turn
// visible in history. Concurrent sends against the same chat are not
// serialized; their message writes may interleave.
func (s *Service) SendMessage(ctx context.Context, text, chatID, model string) (*SendResult, error) {
	effectiveModel := s.cfg.ResolveModel(model)

	if chatID == "" {
		chatID = uuid.NewString()
		title := s.GenerateTitle(ctx, text, effectiveModel)
		if _, err := s.db.CreateChat(chatID, title, effectiveModel, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
	} else {
		if _, err := s.db.GetChat(chatID); err != nil {
			return nil, err
		}
		if err := s.db.TouchChat(chatID, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	history, err := s.db.ListMessages(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	// The system message is materialized in memory only when the stored
	// history is empty; it is never persisted as its own row.
	window := make([]models.Message, 0, len(history)+2)
	if len(history) == 0 {
		window = append(window, models.Message{Role: models.RoleSystem, Content: systemPrompt})
	}
	window = append(window, history...)
	window = append(window, models.Message{Role: models.RoleUser, Content: text})

	if _, err := s.db.AppendMessage(chatID, models.RoleUser, text, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	reply, err := s.Complete(ctx, window, effectiveModel)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.AppendMessage(chatID, models.RoleAssistant, reply, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	return &SendResult{ChatID: chatID, Message: text, Response: reply}, nil
}

// GenerateTitle asks the provider for a short title seeded by the first
// message of a chat. It never fails: any transport or provider error falls
// back to a fixed title so chat creation can proceed.
func (s *Service) GenerateTitle(ctx context.Context, seed, model string) string {
	prompt := fmt.Sprintf("Based on this message, create a very short title (3-5 words max): '%s'", seed)

	resp, err := s.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, titleSystemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithModel(model),
		llms.WithMaxTokens(10),
		llms.WithTemperature(0.7),
	)
	if err != nil || len(resp.Choices) == 0 {
		s.logger.Warn("title generation failed, using fallback", zap.Error(err))
		return fallbackTitle
	}

	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Content), `"`)
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen-3]) + "..."
	}
	return title
}

// Complete sends the full context window to the provider and returns the
// assistant's reply.
func (s *Service) Complete(ctx context.Context, window []models.Message, model string) (string, error) {
	content := make([]llms.MessageContent, 0, len(window))
	for _, msg := range window {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	resp, err := s.llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithTemperature(0.7),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUpstream)
	}
	return resp.Choices[0].Content, nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleUser:
		return llms.ChatMessageTypeHuman
	default:
		return llms.ChatMessageTypeGeneric
	}
}
