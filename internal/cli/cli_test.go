// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mailassist/internal/config"
	"github.com/jeranaias/mailassist/internal/export"
	"github.com/jeranaias/mailassist/internal/ollama"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// isolate points configuration and .env lookup at a fresh directory and
// clears every override.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	for _, name := range []string{
		"MAILASSIST_CONFIG",
		"MAILASSIST_OLLAMA_URL",
		"MAILASSIST_LANGUAGE",
		"MAILASSIST_MODEL",
		"MAILASSIST_MAIL_BRIDGE",
		"MAILASSIST_SELECTION_FILE",
		"MAILASSIST_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
	return home
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"mailassist"}, args...))
	return out.String(), errOut.String(), err
}

// fakeOllama speaks enough of the Ollama API for end-to-end tests.
type fakeOllama struct {
	mu       sync.Mutex
	requests []ollama.ChatRequest

	score  string
	answer []string
}

func (f *fakeOllama) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollama.ListModelsResponse{Models: []ollama.ModelInfo{
			{Name: "llama3", Size: 4_700_000_000},
			{Name: "mistral", Size: 4_100_000_000},
		}})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		if !req.Stream {
			json.NewEncoder(w).Encode(ollama.ChatResponse{
				Model:   req.Model,
				Message: ollama.Message{Role: "assistant", Content: f.score},
				Done:    true,
			})
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for i, part := range f.answer {
			json.NewEncoder(w).Encode(ollama.ChatResponse{
				Model:   req.Model,
				Message: ollama.Message{Role: "assistant", Content: part},
				Done:    i == len(f.answer)-1,
			})
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeOllama) streamed(t *testing.T) []ollama.ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ollama.ChatRequest
	for _, r := range f.requests {
		if r.Stream {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// SLASH COMMAND PARSING
// =============================================================================

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArg  string
	}{
		{"/help", "/help", ""},
		{"/MODEL llama3", "/model", "llama3"},
		{"  /instruction   Answer in bullet points  ", "/instruction", "Answer in bullet points"},
		{"/attach a.pdf b.png", "/attach", "a.pdf b.png"},
		{"/", "/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, arg := parseSlashCommand(tt.input)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

// =============================================================================
// ANSWER PRINTER
// =============================================================================

func TestAnswerPrinterStreamsSuffixes(t *testing.T) {
	var buf bytes.Buffer
	p := newAnswerPrinter(&buf, false)

	for _, partial := range []string{"Hel", "Hello", "Hello, world", ""} {
		p.Update(partial)
	}
	p.Finish("Hello, world")

	assert.Equal(t, "Hello, world\n", buf.String())
}

func TestAnswerPrinterMarkdownWaitsForEnd(t *testing.T) {
	var buf bytes.Buffer
	p := newAnswerPrinter(&buf, true)

	p.Update("# Title")
	assert.Empty(t, buf.String())

	p.Finish("# Title\n\nBody text")
	assert.Contains(t, buf.String(), "Body text")
}

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func TestConfigSetGetPath(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")

	out, _, err := runApp(t, "--config", path, "config", "set", "language", "German")
	require.NoError(t, err)
	assert.Contains(t, out, "user_data.language = German")

	out, _, err = runApp(t, "--config", path, "config", "get", "language")
	require.NoError(t, err)
	assert.Equal(t, "German\n", out)

	out, _, err = runApp(t, "--config", path, "config", "set", "customInstruction", "Keep", "it", "short.")
	require.NoError(t, err)
	out, _, err = runApp(t, "--config", path, "config", "get", "custom_instruction")
	require.NoError(t, err)
	assert.Equal(t, "Keep it short.\n", out)

	out, _, err = runApp(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, _, err = runApp(t, "--config", path, "config", "set", "ollama_url", "nope")
	assert.Error(t, err)
	_, _, err = runApp(t, "--config", path, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestConfigKeys(t *testing.T) {
	isolate(t)
	out, _, err := runApp(t, "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "user_data.ollama_url\n")
	assert.Contains(t, out, "mail.poll_interval_ms\n")

	_, _, err = runApp(t, "config", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: mailassist config get KEY")
	assert.Contains(t, err.Error(), "user_data.language")
}

func TestConfigListShowsTOML(t *testing.T) {
	isolate(t)
	out, _, err := runApp(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "[user_data]")
	assert.Contains(t, out, `ollama_url = "http://localhost:11434"`)
}

func TestConfigImport(t *testing.T) {
	home := isolate(t)
	doc := filepath.Join(home, "addin.json")
	require.NoError(t, os.WriteFile(doc,
		[]byte(`{"userData":{"language":"French","customInstruction":"","ollamaUrl":"http://10.1.1.1:11434"}}`), 0600))

	path := filepath.Join(home, "config.toml")
	_, _, err := runApp(t, "--config", path, "config", "import", doc)
	require.NoError(t, err)

	out, _, err := runApp(t, "--config", path, "config", "get", "ollamaUrl")
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.1.1:11434\n", out)
}

// =============================================================================
// MODEL SERVER COMMANDS
// =============================================================================

func TestModelsCommand(t *testing.T) {
	isolate(t)
	srv := (&fakeOllama{}).start(t)

	out, _, err := runApp(t, "--url", srv.URL, "models")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "* llama3"))
	assert.Contains(t, lines[0], "4.4 GB")
	assert.True(t, strings.HasPrefix(lines[1], "  mistral"))
}

func TestModelsCommandServerDown(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := runApp(t, "--url", url, "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ollama is not running at "+url)
}

func TestModelsCommandNoModelsInstalled(t *testing.T) {
	isolate(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, _, err := runApp(t, "--url", srv.URL, "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models installed at "+srv.URL)
}

func TestAskCommandServerDown(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := runApp(t, "--url", url, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ollama is not running")
}

func TestAskCommandStreams(t *testing.T) {
	isolate(t)
	fake := &fakeOllama{answer: []string{"Hello", ", ", "world"}}
	srv := fake.start(t)

	out, _, err := runApp(t, "--url", srv.URL, "ask", "Say", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world\n", out)

	reqs := fake.streamed(t)
	require.Len(t, reqs, 1)
	assert.Equal(t, "llama3", reqs[0].Model, "first listed model is the default")
	require.Len(t, reqs[0].Messages, 1)
	assert.Equal(t, "Say hello", reqs[0].Messages[0].Content)
}

func TestAskCommandWithFiles(t *testing.T) {
	home := isolate(t)
	fake := &fakeOllama{answer: []string{"Nice picture"}}
	srv := fake.start(t)

	img := filepath.Join(home, "cat.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0600))
	blob := filepath.Join(home, "archive.zip")
	require.NoError(t, os.WriteFile(blob, []byte("PK"), 0600))

	_, errOut, err := runApp(t, "--url", srv.URL, "-m", "llava", "ask", "-f", img, "-f", blob, "Describe this")
	require.NoError(t, err)
	assert.Contains(t, errOut, "archive.zip (unsupported type, not sent)")

	reqs := fake.streamed(t)
	require.Len(t, reqs, 1)
	assert.Equal(t, "llava", reqs[0].Model)
	assert.Len(t, reqs[0].Messages[0].Images, 1)
	assert.Equal(t, "Describe this", reqs[0].Messages[0].Content)
}

func TestSummarizeCommandWarnsAboutSpam(t *testing.T) {
	home := isolate(t)
	selection := filepath.Join(home, "selected.json")
	require.NoError(t, os.WriteFile(selection, []byte(`{
		"subject": "Deal",
		"sender": "promo@shop.example",
		"recipient": "me@example.com",
		"receivedTime": "2025-03-04T09:30:00Z",
		"body": "Buy now, 90% off!!!",
		"attachments": []
	}`), 0600))
	t.Setenv("MAILASSIST_MAIL_BRIDGE", "file")
	t.Setenv("MAILASSIST_SELECTION_FILE", selection)

	fake := &fakeOllama{
		score:  `{"reason":"promotional language","result":87}`,
		answer: []string{"This looks like an advertisement."},
	}
	srv := fake.start(t)

	out, errOut, err := runApp(t, "--url", srv.URL, "summarize")
	require.NoError(t, err)
	assert.Equal(t, "This looks like an advertisement.\n", out)
	assert.Contains(t, errOut, "likely spam (87/100): promotional language")

	reqs := fake.streamed(t)
	require.Len(t, reqs, 1)
	last := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	assert.True(t, strings.HasPrefix(last, "In English, warn the user"))
}

func TestEmailCommandWithoutBridge(t *testing.T) {
	isolate(t)
	_, _, err := runApp(t, "email")
	require.Error(t, err)
	assert.Equal(t, "Mail bridge disabled.", err.Error())
}

// =============================================================================
// INTERACTIVE SESSION
// =============================================================================

func newTestSession(t *testing.T, serverURL string) (*chatSession, *bytes.Buffer) {
	t.Helper()
	home := isolate(t)

	settings := config.NewSettings(config.Default(), filepath.Join(home, "config.toml"))
	require.NoError(t, settings.Set("ollama_url", serverURL))

	var out, errOut bytes.Buffer
	rt, err := buildRuntime(settings, runtimeOptions{Model: "llama3", Out: &out, ErrOut: &errOut})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	return newChatSession(rt, false), &out
}

func TestSlashCommands(t *testing.T) {
	fake := &fakeOllama{answer: []string{"Hi!"}}
	srv := fake.start(t)
	s, out := newTestSession(t, srv.URL)
	ctx := context.Background()

	keep, err := s.handleSlashCommand(ctx, "/model mistral")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "mistral", s.rt.assistant.Model())

	_, err = s.handleSlashCommand(ctx, "/lang Dutch")
	require.NoError(t, err)
	assert.Equal(t, "Dutch", s.rt.settings.Language())

	_, err = s.handleSlashCommand(ctx, "/instruction Use short sentences.")
	require.NoError(t, err)
	assert.Equal(t, "Use short sentences.", s.rt.settings.CustomInstruction())
	_, err = s.handleSlashCommand(ctx, "/instruction clear")
	require.NoError(t, err)
	assert.Empty(t, s.rt.settings.CustomInstruction())

	_, err = s.handleSlashCommand(ctx, "/url not-a-url")
	assert.Error(t, err)

	_, err = s.handleSlashCommand(ctx, "/attach /definitely/not/here.pdf")
	assert.Error(t, err)
	assert.Empty(t, s.pending)

	_, err = s.handleSlashCommand(ctx, "/bogus")
	assert.ErrorContains(t, err, "unknown command")

	out.Reset()
	_, err = s.handleSlashCommand(ctx, "/models")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "* ")
	assert.Contains(t, out.String(), "mistral")

	keep, err = s.handleSlashCommand(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestSessionSendWithAttachment(t *testing.T) {
	fake := &fakeOllama{answer: []string{"Got ", "it"}}
	srv := fake.start(t)
	s, out := newTestSession(t, srv.URL)
	ctx := context.Background()

	dir := t.TempDir()
	img := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0600))

	_, err := s.handleSlashCommand(ctx, "/attach "+img)
	require.NoError(t, err)
	assert.Equal(t, []string{img}, s.pending)

	require.NoError(t, s.send(ctx, "What is this?"))
	assert.Empty(t, s.pending, "attachments go with one message only")
	assert.Contains(t, out.String(), "Got it")

	reqs := fake.streamed(t)
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Messages[0].Images, 1)

	out.Reset()
	_, err = s.handleSlashCommand(ctx, "/log")
	require.NoError(t, err)
	assert.Equal(t, "User:\nWhat is this?\nAI (llama3):\nGot it\n", out.String())

	exported := filepath.Join(dir, "chat.md")
	_, err = s.handleSlashCommand(ctx, "/export "+exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### AI (llama3)\n\nGot it\n")

	_, err = s.handleSlashCommand(ctx, "/clear")
	require.NoError(t, err)
	assert.Empty(t, s.rt.assistant.Transcript())

	_, err = s.handleSlashCommand(ctx, "/export "+exported)
	assert.ErrorIs(t, err, export.ErrEmpty)
}

func TestSessionSaveWritesConfig(t *testing.T) {
	srv := (&fakeOllama{}).start(t)
	s, _ := newTestSession(t, srv.URL)

	_, err := s.handleSlashCommand(context.Background(), "/lang Swedish")
	require.NoError(t, err)
	_, err = s.handleSlashCommand(context.Background(), "/save")
	require.NoError(t, err)

	reloaded, err := config.LoadFromPath(s.rt.settings.Path())
	require.NoError(t, err)
	assert.Equal(t, "Swedish", reloaded.UserData.Language)
}
