// Package assistant answers free-text questions about the transaction log
// through an external language model.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/manara-erp/manara/internal/ledger"
)

// Mode selects how the model is asked.
type Mode string

const (
	ModeBasic  Mode = "basic"
	ModeThink  Mode = "think"
	ModeSearch Mode = "search"
)

// ParseMode validates a mode; empty means basic.
func ParseMode(v string) (Mode, error) {
	switch m := Mode(v); m {
	case "":
		return ModeBasic, nil
	case ModeBasic, ModeThink, ModeSearch:
		return m, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidQuestion, v)
}

// ErrInvalidQuestion is returned for empty questions and unknown modes.
var ErrInvalidQuestion = errors.New("assistant: invalid question")

const (
	// FallbackText is returned when the model cannot be reached.
	FallbackText = "Sorry, the assistant is unavailable right now. Please try again later."
	// snapshotLimit bounds how many recent transactions are sent as context.
	snapshotLimit = 200
)

// Link is a source cited by a search-grounded reply.
type Link struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Prompt is one model request.
type Prompt struct {
	Mode Mode
	Text string
}

// Reply is the model answer.
type Reply struct {
	Text          string `json:"text"`
	GroundingURLs []Link `json:"groundingUrls,omitempty"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// Client generates replies.
type Client interface {
	Generate(ctx context.Context, p Prompt) (Reply, error)
}

// Source supplies the log snapshot, newest first.
type Source interface {
	RecentTransactions(limit int) []ledger.Transaction
}

// Service builds prompts from the log and calls the model. It only reads.
type Service struct {
	client  Client
	source  Source
	timeout time.Duration
	logger  *slog.Logger
}

// NewService wires an assistant. A nil client always falls back.
func NewService(client Client, source Source, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{client: client, source: source, timeout: timeout, logger: logger}
}

// Ask answers question in mode. Model failures produce the fallback reply
// rather than an error.
func (s *Service) Ask(ctx context.Context, mode Mode, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, fmt.Errorf("%w: question required", ErrInvalidQuestion)
	}
	if s.client == nil {
		return Reply{Text: FallbackText, Fallback: true}, nil
	}
	text, err := s.prompt(question)
	if err != nil {
		return Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	started := time.Now()
	reply, err := s.client.Generate(ctx, Prompt{Mode: mode, Text: text})
	if err != nil {
		s.logger.Warn("assistant call failed",
			slog.String("mode", string(mode)),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err))
		return Reply{Text: FallbackText, Fallback: true}, nil
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = FallbackText
		reply.Fallback = true
	}
	return reply, nil
}

func (s *Service) prompt(question string) (string, error) {
	snapshot, err := json.Marshal(s.source.RecentTransactions(snapshotLimit))
	if err != nil {
		return "", fmt.Errorf("assistant: encode snapshot: %w", err)
	}
	var b strings.Builder
	b.WriteString("Current sales and purchases log (newest first): ")
	b.Write(snapshot)
	b.WriteString(". The user asks: ")
	b.WriteString(question)
	return b.String(), nil
}
