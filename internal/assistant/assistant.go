// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant ties the gateway, composer, reasoning pipeline and
// conversation store together into the operations the user triggers:
// asking a question, summarizing the selected email and drafting a reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/mailassist/internal/attachment"
	"github.com/jeranaias/mailassist/internal/compose"
	"github.com/jeranaias/mailassist/internal/gateway"
	"github.com/jeranaias/mailassist/internal/mail"
	"github.com/jeranaias/mailassist/internal/model"
	"github.com/jeranaias/mailassist/internal/reasoning"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyPrompt is returned for a blank question.
	ErrEmptyPrompt = errors.New("please enter a prompt")

	// ErrNoModel is returned when no model is selected.
	ErrNoModel = errors.New("no model selected")

	// ErrNoEmail is returned when the mail client has no usable selection.
	ErrNoEmail = errors.New("no email available")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ModelGateway is the model server as the assistant sees it.
// *gateway.Gateway satisfies it.
type ModelGateway interface {
	ListModels(ctx context.Context) []string
	StreamTurn(ctx context.Context, modelName string, turn *model.Turn, onUpdate func(partial string)) (string, bool)
	Complete(ctx context.Context, modelName string, history []model.Message, opts gateway.CompleteOptions) (string, bool)
}

// Settings is the flat user-settings document. *config.Settings
// satisfies it.
type Settings interface {
	Get(key string) string
	Set(key, value string) error
}

// AttachmentBuilder turns file paths into a classified bundle.
type AttachmentBuilder interface {
	Build(ctx context.Context, paths []string) attachment.Bundle
}

// MailSource reports the most recent mail client selection.
// *mail.Poller satisfies it.
type MailSource interface {
	Latest() mail.Record
}

// Setting keys read by the assistant.
const (
	KeyServerURL         = "ollama_url"
	KeyLanguage          = "language"
	KeyCustomInstruction = "custom_instruction"
)

const defaultLanguage = "English"

// =============================================================================
// ASSISTANT
// =============================================================================

// Options configures a new Assistant.
type Options struct {
	Gateway     ModelGateway
	Settings    Settings
	Attachments AttachmentBuilder
	Mail        MailSource

	// Model is the initial model. Empty selects the first listed model.
	Model string

	// FormatJSON requests JSON mode for spam scoring.
	FormatJSON bool
}

// Reply is the outcome of one exchange.
type Reply struct {
	// Answer is the model's reply; empty when OK is false.
	Answer string
	OK     bool

	// Attachments is the bundle folded into the request.
	Attachments attachment.Bundle

	// Spam is set for email operations that were scored.
	Spam *reasoning.SpamVerdict
}

// Assistant owns one user session: its conversation, display log and
// model selection. One request runs at a time.
type Assistant struct {
	gw          ModelGateway
	settings    Settings
	attachments AttachmentBuilder
	mail        MailSource
	formatJSON  bool

	// history guards conv and display together so they clear and grow
	// in step.
	history sync.Mutex
	conv    *model.Conversation
	display *model.DisplayLog

	busy sync.Mutex

	mu        sync.RWMutex
	model     string
	onPartial func(string)
}

// New creates an assistant. Attachments defaults to reading the local
// disk and Mail to a source with nothing selected.
func New(opts Options) *Assistant {
	if opts.Attachments == nil {
		opts.Attachments = attachment.NewBuilder(nil, nil)
	}
	if opts.Mail == nil {
		opts.Mail = noMail{}
	}
	return &Assistant{
		gw:          opts.Gateway,
		settings:    opts.Settings,
		attachments: opts.Attachments,
		mail:        opts.Mail,
		formatJSON:  opts.FormatJSON,
		conv:        model.NewConversation(),
		display:     model.NewDisplayLog(),
		model:       opts.Model,
	}
}

type noMail struct{}

func (noMail) Latest() mail.Record { return mail.Failed(mail.NoSelection) }

// =============================================================================
// MODEL SELECTION
// =============================================================================

// Models lists the server's models. When no model is selected yet the
// first one becomes the selection.
func (a *Assistant) Models(ctx context.Context) []string {
	names := a.gw.ListModels(ctx)

	a.mu.Lock()
	if a.model == "" && len(names) > 0 {
		a.model = names[0]
		log.Info().Str("model", a.model).Msg("MODEL_SELECTED")
	}
	a.mu.Unlock()

	return names
}

// SelectModel switches the model used for later requests.
func (a *Assistant) SelectModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoModel
	}
	a.mu.Lock()
	a.model = name
	a.mu.Unlock()
	log.Info().Str("model", name).Msg("MODEL_SELECTED")
	return nil
}

// Model returns the selected model, or "" if none.
func (a *Assistant) Model() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// SetServerURL points later requests at another model server. Requests
// already running finish against the old one.
func (a *Assistant) SetServerURL(url string) error {
	if err := a.settings.Set(KeyServerURL, strings.TrimSpace(url)); err != nil {
		return fmt.Errorf("set server URL: %w", err)
	}
	return nil
}

// OnPartial registers fn to receive each cumulative partial answer while
// a reply streams. fn receives "" once the stream ends.
func (a *Assistant) OnPartial(fn func(string)) {
	a.mu.Lock()
	a.onPartial = fn
	a.mu.Unlock()
}

func (a *Assistant) emitPartial(partial string) {
	a.mu.RLock()
	fn := a.onPartial
	a.mu.RUnlock()
	if fn != nil {
		fn(partial)
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Clear empties the conversation and the display log. A request already
// in flight is not interrupted, but its answer is not recorded.
func (a *Assistant) Clear() {
	a.history.Lock()
	a.conv.Clear()
	a.display.Clear()
	a.history.Unlock()
	log.Debug().Msg("CONVERSATION_CLEARED")
}

// Transcript returns a copy of the messages sent with each request.
func (a *Assistant) Transcript() []model.Message {
	return a.conv.Snapshot()
}

// Log returns a copy of the display log.
func (a *Assistant) Log() []string {
	return a.display.Entries()
}

// Email returns the current mail client selection.
func (a *Assistant) Email() mail.Record {
	return a.mail.Latest()
}

func (a *Assistant) language() string {
	if lang := strings.TrimSpace(a.settings.Get(KeyLanguage)); lang != "" {
		return lang
	}
	return defaultLanguage
}

// begin claims the session for one request and returns the model to use.
func (a *Assistant) begin() (string, error) {
	if !a.busy.TryLock() {
		return "", ErrBusy
	}
	m := a.Model()
	if m == "" {
		a.busy.Unlock()
		return "", ErrNoModel
	}
	return m, nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Ask sends text with the given files attached and streams the answer.
func (a *Assistant) Ask(ctx context.Context, text string, files []string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyPrompt
	}
	modelName, err := a.begin()
	if err != nil {
		return Reply{}, err
	}
	defer a.busy.Unlock()

	var bundle attachment.Bundle
	if len(files) > 0 {
		bundle = a.attachments.Build(ctx, files)
	}

	msg := compose.Compose(a.settings.Get(KeyCustomInstruction), bundle, text)
	reply := a.exchange(ctx, modelName, text, msg)
	reply.Attachments = bundle
	return reply, nil
}

// SummarizeEmail summarizes the selected email, or warns about it if it
// scores as spam.
func (a *Assistant) SummarizeEmail(ctx context.Context) (Reply, error) {
	return a.actOnEmail(ctx, IntentSummarize)
}

// ReplyEmail drafts a reply to the selected email, or warns about it if
// it scores as spam.
func (a *Assistant) ReplyEmail(ctx context.Context) (Reply, error) {
	return a.actOnEmail(ctx, IntentReply)
}

// actOnEmail scores the selected email on a copy of the conversation,
// then sends exactly one request: the warning when the email looks like
// spam, the intent's prompt otherwise. A scoring reply that breaks the
// JSON contract fails the operation before anything is sent.
func (a *Assistant) actOnEmail(ctx context.Context, intent Intent) (Reply, error) {
	rec := a.mail.Latest()
	if !rec.OK() {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoEmail, rec.Err)
	}
	email := rec.Email

	modelName, err := a.begin()
	if err != nil {
		return Reply{}, err
	}
	defer a.busy.Unlock()

	language := a.language()

	asker := reasoning.NewAsker(a.gw, modelName)
	asker.JSONMode = a.formatJSON

	var spam *reasoning.SpamVerdict
	verdict, err := asker.ScoreSpam(ctx, email.Describe(), a.conv.Snapshot())
	switch {
	case err == nil:
		spam = &verdict
	case errors.Is(err, reasoning.ErrNoResponse):
		log.Warn().Err(err).Str("subject", email.Subject).Msg("SPAM_SCORE_UNAVAILABLE")
	default:
		return Reply{}, err
	}

	prompt, label := SummarizePrompt(language, email), Label(intent, email.Subject)
	if intent == IntentReply {
		prompt = ReplyPrompt(email)
	}
	if spam != nil && spam.Suspicious() {
		prompt, label = SpamWarningPrompt(language, email, *spam), SpamLabel(email.Subject)
	}
	log.Info().
		Str("intent", intent.String()).
		Str("subject", email.Subject).
		Bool("spam", spam != nil && spam.Suspicious()).
		Msg("EMAIL_ACTION")

	var bundle attachment.Bundle
	if len(email.Attachments) > 0 {
		bundle = a.attachments.Build(ctx, email.Attachments)
	}

	msg := compose.Compose(a.settings.Get(KeyCustomInstruction), bundle, prompt)
	reply := a.exchange(ctx, modelName, label, msg)
	reply.Attachments = bundle
	reply.Spam = spam
	return reply, nil
}

// exchange appends msg to the conversation, streams the answer and
// records both sides in the display log. If the session is cleared while
// the answer streams, the answer still reaches the partial callback and
// the caller but is left out of the new conversation.
func (a *Assistant) exchange(ctx context.Context, modelName, label string, msg model.Message) Reply {
	a.history.Lock()
	turn := a.conv.Begin(msg)
	a.display.AddQuestion(label, modelName)
	a.history.Unlock()

	answer, ok := a.gw.StreamTurn(ctx, modelName, turn, a.emitPartial)
	a.emitPartial("")

	a.history.Lock()
	if turn.Current() {
		a.display.AddAnswer(answer, ok)
	}
	a.history.Unlock()
	return Reply{Answer: answer, OK: ok}
}
