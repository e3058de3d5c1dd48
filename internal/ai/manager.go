package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docask/docask/internal/conversation"
)

const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"

	// rough budget for the generation context, ~4 chars per token
	maxContextTokens = 60000
	summaryMaxChars  = 500
)

type ManagerConfig struct {
	Model         string
	EmbedModel    string
	Timeout       int
	MaxInputChars int
}

// Manager owns prompt construction on top of a raw provider: summaries
// for multi-representation indexing, embeddings for index and query, and
// grounded answer generation.
type Manager struct {
	provider IProvider
	cfg      ManagerConfig
}

func NewManager(provider IProvider, cfg ManagerConfig) *Manager {
	return &Manager{provider: provider, cfg: cfg}
}

func (m *Manager) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text, taskRetrievalDocument)
}

func (m *Manager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text, taskRetrievalQuery)
}

func (m *Manager) EmbedModelName() string {
	return m.cfg.EmbedModel
}

func (m *Manager) embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.provider == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.provider.Embed(ctx, m.cfg.EmbedModel, text, taskType)
}

// Summarize produces the short retrieval surrogate stored next to the
// full text. Long inputs are cut at MaxInputChars before prompting.
func (m *Manager) Summarize(ctx context.Context, text string) (string, error) {
	if m.provider == nil {
		return "", ErrUnavailable
	}
	if len(text) > m.cfg.MaxInputChars {
		text = truncateBytes(text, m.cfg.MaxInputChars) + "... [document truncated for summarization]"
	}
	prompt := fmt.Sprintf(`You are an assistant that writes brief, informative document summaries.
Focus on the key ideas and important details.
Write a summary of the following document in at most %d characters.
Output ONLY the summary text.

DOCUMENT:
%s`, summaryMaxChars, text)
	return m.generateText(ctx, prompt)
}

// Answer generates a reply grounded in the retrieved full texts, with the
// recent conversation window for continuity. The summary never appears
// here: answers come from full documents only.
func (m *Manager) Answer(ctx context.Context, question string, contextDocs []string, history []conversation.Turn) (string, error) {
	if m.provider == nil {
		return "", ErrUnavailable
	}
	docContext := strings.Join(contextDocs, "\n\n---\n\n")
	docContext = truncateToTokens(docContext, maxContextTokens)

	var sb strings.Builder
	sb.WriteString("You are an assistant for a private document collection. ")
	sb.WriteString("Answer briefly and precisely based on the context documents. ")
	sb.WriteString("Use the conversation history to understand follow-up questions.\n")
	if len(history) > 0 {
		sb.WriteString("\nCONVERSATION HISTORY:\n")
		for _, turn := range history {
			sb.WriteString(turn.Role)
			sb.WriteString(": ")
			sb.WriteString(turn.Text)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nCONTEXT DOCUMENTS:\n")
	sb.WriteString(docContext)
	sb.WriteString("\n\nQUESTION: ")
	sb.WriteString(question)
	return m.generateText(ctx, sb.String())
}

func (m *Manager) generateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.provider.Generate(ctx, m.cfg.Model, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func estimateTokens(text string) int {
	return len(text) / 4
}

func truncateToTokens(text string, maxTokens int) string {
	if estimateTokens(text) <= maxTokens {
		return text
	}
	return truncateBytes(text, maxTokens*4) + "... [context truncated]"
}

// truncateBytes cuts text to at most limit bytes, backing off to the
// previous rune boundary so the cut never splits a multi-byte rune.
func truncateBytes(text string, limit int) string {
	if limit >= len(text) {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
