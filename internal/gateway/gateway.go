// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/mailassist/internal/model"
	"github.com/jeranaias/mailassist/internal/ollama"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Conn is the subset of the Ollama client the gateway drives.
// *ollama.Client satisfies it.
type Conn interface {
	CheckRunning(ctx context.Context) error
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	Chat(ctx context.Context, request ollama.ChatRequest) (*ollama.ChatResponse, error)
	ChatStream(ctx context.Context, request ollama.ChatRequest, callback ollama.StreamCallback) error
}

// Factory builds a connection for a base URL.
type Factory func(baseURL string) Conn

// DefaultFactory connects with the real HTTP client.
func DefaultFactory(baseURL string) Conn {
	return ollama.NewClient(baseURL)
}

// URLSource supplies the current server URL. It is consulted on every
// call so configuration edits take effect without a restart.
type URLSource interface {
	ServerURL() string
}

// StaticURL is a URLSource that never changes.
type StaticURL string

// ServerURL implements URLSource.
func (u StaticURL) ServerURL() string { return string(u) }

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway talks to the model server through a cached connection.
type Gateway struct {
	urls    URLSource
	factory Factory

	mu      sync.Mutex
	conn    Conn
	connURL string
}

// New creates a gateway. A nil factory means DefaultFactory.
func New(urls URLSource, factory Factory) *Gateway {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Gateway{urls: urls, factory: factory}
}

// connection returns the cached connection, rebuilding it when the
// configured URL differs from the one it was built for.
func (g *Gateway) connection() (Conn, string) {
	url := g.urls.ServerURL()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil || url != g.connURL {
		if g.conn != nil {
			log.Debug().Str("from", g.connURL).Str("to", url).Msg("CONNECTION_REBUILT")
		}
		g.conn = g.factory(url)
		g.connURL = url
	}
	return g.conn, g.connURL
}

// CurrentURL reports the URL of the cached connection, or "" before the
// first call.
func (g *Gateway) CurrentURL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connURL
}

// =============================================================================
// HEALTH
// =============================================================================

// Ping checks that the server answers at the configured URL.
func (g *Gateway) Ping(ctx context.Context) error {
	conn, url := g.connection()

	if err := conn.CheckRunning(ctx); err != nil {
		log.Debug().Err(err).Str("url", url).Str("cause", failureCause(err)).Msg("PING_FAILED")
		return err
	}
	return nil
}

// failureCause classifies a client error for logs.
func failureCause(err error) string {
	switch {
	case ollama.IsModelNotFound(err):
		return "model_not_found"
	case ollama.IsNotRunning(err):
		return "not_running"
	case ollama.IsTimeout(err):
		return "timeout"
	default:
		return "other"
	}
}

// =============================================================================
// MODELS
// =============================================================================

// Models returns the installed models in server order, or an empty slice
// when the server cannot be reached or answers badly.
func (g *Gateway) Models(ctx context.Context) []ollama.ModelInfo {
	conn, url := g.connection()

	models, err := conn.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("cause", failureCause(err)).Msg("LIST_MODELS_FAILED")
		return []ollama.ModelInfo{}
	}
	return models
}

// ListModels returns the installed model names in server order.
func (g *Gateway) ListModels(ctx context.Context) []string {
	models := g.Models(ctx)
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names
}

// =============================================================================
// CHAT
// =============================================================================

// CompleteOptions tune a non-streaming completion.
type CompleteOptions struct {
	// Format is passed through to the server; "json" constrains the
	// reply to a single JSON value.
	Format  string
	Options *ollama.Options
}

// Complete sends history and returns the whole reply. ok is false when
// no reply was obtained.
func (g *Gateway) Complete(ctx context.Context, modelName string, history []model.Message, opts CompleteOptions) (string, bool) {
	conn, url := g.connection()

	resp, err := conn.Chat(ctx, ollama.ChatRequest{
		Model:    modelName,
		Messages: model.ToOllamaMessages(history),
		Format:   opts.Format,
		Options:  opts.Options,
	})
	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("model", modelName).
			Str("cause", failureCause(err)).Msg("COMPLETION_FAILED")
		return "", false
	}
	log.Debug().Str("model", modelName).Int("tokens", resp.EvalCount).
		Float64("tokens_per_second", resp.TokensPerSecond()).Msg("COMPLETION_DONE")
	return resp.Message.Content, true
}

// StreamChat sends the conversation, reports each cumulative partial
// answer to onUpdate and, on success, appends the final answer to conv
// as an assistant message. On failure conv is left as it was.
func (g *Gateway) StreamChat(ctx context.Context, modelName string, conv *model.Conversation, onUpdate func(partial string)) (string, bool) {
	return g.StreamTurn(ctx, modelName, conv.Pin(), onUpdate)
}

// StreamTurn is StreamChat for a turn already begun. The final answer is
// appended only if the conversation was not cleared while streaming;
// onUpdate sees every partial either way.
func (g *Gateway) StreamTurn(ctx context.Context, modelName string, turn *model.Turn, onUpdate func(partial string)) (string, bool) {
	stream := g.Stream(ctx, modelName, turn.History())
	defer stream.Close()

	for {
		partial, more := stream.Next()
		if !more {
			break
		}
		if onUpdate != nil {
			onUpdate(partial)
		}
	}

	answer, ok := stream.Final()
	if !ok {
		return "", false
	}
	if !turn.Finish(model.NewAssistantMessage(answer)) {
		log.Debug().Str("model", modelName).Msg("ANSWER_AFTER_CLEAR_DROPPED")
	}
	return answer, true
}
