// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat for mailassist.
//
// Command: chat (default)
//
// Interactive Commands (during chat):
//   /help, /h             Show available commands
//   /models               List models on the server
//   /model [name]         Show or switch model
//   /url [url]            Show or change the Ollama server URL
//   /lang [language]      Show or change the output language
//   /instruction [text]   Show, set or clear ("/instruction clear") the custom instruction
//   /attach FILE...       Attach files to the next message
//   /files                List pending attachments
//   /detach               Drop pending attachments
//   /email                Show the selected email
//   /summarize, /sum      Summarize the selected email
//   /reply                Draft a reply to the selected email
//   /clear, /c            Clear the conversation
//   /history              Show the messages sent to the model
//   /log                  Show the conversation as displayed
//   /export [FILE]        Write the conversation to FILE (.md or .json)
//   /save                 Save settings changed in this session
//   /quit, /q             Exit chat
//   Ctrl+C                Cancel current generation
//   Ctrl+D                Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/mailassist/internal/assistant"
	"github.com/jeranaias/mailassist/internal/config"
	"github.com/jeranaias/mailassist/internal/export"
	"github.com/jeranaias/mailassist/internal/model"
)

// ChatCommand returns the interactive chat command.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Start an interactive chat session (default)",
		Action: runChat,
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with 0600 permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state of one interactive session.
type chatSession struct {
	rt       *runtime
	out      io.Writer
	markdown bool

	// pending files are attached to the next message and then dropped.
	pending []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newChatSession(rt *runtime, markdown bool) *chatSession {
	return &chatSession{rt: rt, out: rt.out, markdown: markdown}
}

// cancelCurrent stops the request in flight, if any.
func (s *chatSession) cancelCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// withRequest runs fn under a context that Ctrl+C can cancel.
func (s *chatSession) withRequest(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()
	return fn(ctx)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(c *cli.Context) error {
	if !stdinIsTerminal() {
		return errors.New("stdin is not a terminal; use 'mailassist ask' for non-interactive use")
	}

	rt, err := newRuntime(c, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	if err := rt.settings.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("CONFIG_WATCH_UNAVAILABLE")
	}
	go rt.poller.Run(ctx)

	session := newChatSession(rt, isTerminalWriter(rt.out))
	var hint string
	if len(rt.assistant.Models(ctx)) == 0 {
		hint = rt.noModelsHint(ctx)
	}
	printWelcome(session, hint)

	input := NewChatCLI()
	defer input.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.cancelCurrent() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		line, err := input.ReadInput(promptStyle.Render("mailassist> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal.
			fmt.Fprintln(session.out)
			fmt.Fprintln(session.out, DimStyle.Render("Goodbye!"))
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := session.handleSlashCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				fmt.Fprintln(session.out, DimStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Fprintln(session.out, DimStyle.Render("Goodbye!"))
			return nil
		}

		if err := session.send(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// send asks the model about text with the pending attachments.
func (s *chatSession) send(ctx context.Context, text string) error {
	files := s.pending
	s.pending = nil

	return s.withRequest(ctx, func(ctx context.Context) error {
		printer := s.startAnswer()
		start := time.Now()
		reply, err := s.rt.assistant.Ask(ctx, text, files)
		if err != nil {
			s.pending = files
			return err
		}
		return s.finish(printer, reply, start)
	})
}

// emailAction summarizes or replies to the selected email.
func (s *chatSession) emailAction(ctx context.Context, intent assistant.Intent) error {
	return s.withRequest(ctx, func(ctx context.Context) error {
		printer := s.startAnswer()
		start := time.Now()
		reply, err := emailAction(ctx, s.rt.assistant, intent)
		if err != nil {
			return err
		}
		printSpamNote(s.out, reply)
		return s.finish(printer, reply, start)
	})
}

func (s *chatSession) startAnswer() *answerPrinter {
	printer := newAnswerPrinter(s.out, s.markdown)
	s.rt.assistant.OnPartial(printer.Update)
	fmt.Fprintln(s.out)
	return printer
}

func (s *chatSession) finish(printer *answerPrinter, reply assistant.Reply, start time.Time) error {
	printAttachmentNotes(s.out, reply)
	if !reply.OK {
		return fmt.Errorf("no response from %s", s.rt.settings.ServerURL())
	}
	printer.Finish(reply.Answer)
	fmt.Fprintf(s.out, "%s\n\n", DimStyle.Render(fmt.Sprintf("[%s | %s]",
		s.rt.assistant.Model(), time.Since(start).Round(time.Millisecond))))
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one slash command. It returns false when the
// session should end.
func (s *chatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	name, arg := parseSlashCommand(input)
	a := s.rt.assistant

	switch name {
	case "/help", "/h", "/?", "/":
		printHelp(s.out)

	case "/quit", "/q", "/exit":
		return false, nil

	case "/models":
		models := a.Models(ctx)
		if len(models) == 0 {
			return true, fmt.Errorf("no models available at %s", s.rt.settings.ServerURL())
		}
		for _, m := range models {
			if m == a.Model() {
				fmt.Fprintf(s.out, "* %s\n", CommandStyle.Render(m))
			} else {
				fmt.Fprintf(s.out, "  %s\n", m)
			}
		}

	case "/model", "/m":
		if arg == "" {
			fmt.Fprintf(s.out, "%s %s\n", DimStyle.Render("[Model]"), CommandStyle.Render(orNone(a.Model())))
			return true, nil
		}
		if err := a.SelectModel(arg); err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "%s Switched to model: %s\n", SuccessStyle.Render("[OK]"), arg)

	case "/url":
		return true, s.showOrSet(assistant.KeyServerURL, "URL", arg, a.SetServerURL)

	case "/lang", "/language":
		return true, s.showOrSet(assistant.KeyLanguage, "Language", arg, func(v string) error {
			return s.rt.settings.Set(assistant.KeyLanguage, v)
		})

	case "/instruction":
		if strings.EqualFold(arg, "clear") {
			if err := s.rt.settings.Set(assistant.KeyCustomInstruction, ""); err != nil {
				return true, err
			}
			fmt.Fprintf(s.out, "%s Custom instruction cleared\n", SuccessStyle.Render("[OK]"))
			return true, nil
		}
		return true, s.showOrSet(assistant.KeyCustomInstruction, "Instruction", arg, func(v string) error {
			return s.rt.settings.Set(assistant.KeyCustomInstruction, v)
		})

	case "/attach", "/a":
		return true, s.attach(arg)

	case "/files":
		if len(s.pending) == 0 {
			fmt.Fprintln(s.out, DimStyle.Render("[No files attached]"))
			return true, nil
		}
		for _, f := range s.pending {
			fmt.Fprintf(s.out, "  %s\n", f)
		}

	case "/detach":
		s.pending = nil
		fmt.Fprintln(s.out, SuccessStyle.Render("[Attachments cleared]"))

	case "/email", "/e":
		rec := a.Email()
		if !rec.OK() {
			fmt.Fprintf(s.out, "%s %s\n", WarningStyle.Render("[Email]"), rec.Err)
			return true, nil
		}
		printEmail(s.out, rec.Email)

	case "/summarize", "/sum":
		return true, s.emailAction(ctx, assistant.IntentSummarize)

	case "/reply":
		return true, s.emailAction(ctx, assistant.IntentReply)

	case "/clear", "/c":
		a.Clear()
		fmt.Fprintln(s.out, SuccessStyle.Render("[Conversation cleared]"))

	case "/history":
		printHistory(s.out, a.Transcript())

	case "/log":
		for _, entry := range a.Log() {
			fmt.Fprintln(s.out, entry)
		}

	case "/export":
		t := export.FromLog(a.Log(), a.Model(), time.Now())
		path, err := export.WriteFile(arg, t)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "%s Conversation written to %s\n", SuccessStyle.Render("[OK]"), path)

	case "/save":
		if err := s.rt.settings.Save(); err != nil {
			return true, err
		}
		fmt.Fprintf(s.out, "%s Saved to %s\n", SuccessStyle.Render("[OK]"), s.rt.settings.Path())

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	return true, nil
}

// parseSlashCommand splits "/cmd rest of line" into its lowercased name
// and trimmed argument.
func parseSlashCommand(input string) (name, arg string) {
	input = strings.TrimSpace(input)
	name, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// showOrSet prints the current value of key when value is empty and
// applies it otherwise.
func (s *chatSession) showOrSet(key, label, value string, set func(string) error) error {
	if value == "" {
		fmt.Fprintf(s.out, "%s %s\n", DimStyle.Render("["+label+"]"), orNone(s.rt.settings.Get(key)))
		return nil
	}
	if err := set(value); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s %s set to %s %s\n",
		SuccessStyle.Render("[OK]"), label, value, DimStyle.Render("(/save to keep)"))
	return nil
}

func (s *chatSession) attach(arg string) error {
	paths := strings.Fields(arg)
	if len(paths) == 0 {
		return errors.New("usage: /attach FILE...")
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("cannot attach %s: %w", p, err)
		}
		if info.IsDir() {
			return fmt.Errorf("cannot attach %s: is a directory", p)
		}
	}
	s.pending = append(s.pending, paths...)
	fmt.Fprintf(s.out, "%s %d file(s) will be sent with your next message\n",
		SuccessStyle.Render("[Attached]"), len(s.pending))
	return nil
}

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome shows the session header. hint explains an empty model
// list and is empty when models were found.
func printWelcome(s *chatSession, hint string) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.Render("mailassist interactive chat"))
	fmt.Fprintln(s.out, RenderSeparator(30))
	fmt.Fprintf(s.out, "%s%s\n", RenderLabel("Server:"), s.rt.settings.ServerURL())
	fmt.Fprintf(s.out, "%s%s\n", RenderLabel("Model:"), CommandStyle.Render(orNone(s.rt.assistant.Model())))
	if hint != "" {
		fmt.Fprintln(s.out, WarningStyle.Render(hint))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(s.out)
}

func printHelp(w io.Writer) {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/models", "List models on the server"},
		{"/model [name]", "Show or switch model"},
		{"/url [url]", "Show or change the Ollama server URL"},
		{"/lang [language]", "Show or change the summary language"},
		{"/instruction [text]", "Show, set or clear the custom instruction"},
		{"/attach FILE...", "Attach files to the next message"},
		{"/files, /detach", "List or drop pending attachments"},
		{"/email", "Show the selected email"},
		{"/summarize", "Summarize the selected email"},
		{"/reply", "Draft a reply to the selected email"},
		{"/clear, /c", "Clear the conversation"},
		{"/history, /log", "Show the conversation"},
		{"/export [FILE]", "Write the conversation to a file"},
		{"/save", "Save settings"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Available Commands"))
	fmt.Fprintln(w, RenderSeparator(20))
	for _, c := range commands {
		fmt.Fprintf(w, "  %s  %s\n", CommandStyle.Render(fmt.Sprintf("%-20s", c.cmd)), DimStyle.Render(c.desc))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Tip: Ctrl+C cancels the current answer, Ctrl+D exits"))
	fmt.Fprintln(w)
}

func printHistory(w io.Writer, messages []model.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, DimStyle.Render("[No messages yet]"))
		return
	}
	for i, msg := range messages {
		role := userStyle.Render(msg.Role.DisplayName())
		if msg.Role == model.RoleAssistant {
			role = aiStyle.Render(msg.Role.DisplayName())
		}
		content := strings.ReplaceAll(msg.Preview(100), "\n", " ")
		if len(msg.Images) > 0 {
			content += DimStyle.Render(fmt.Sprintf(" [%d image(s)]", len(msg.Images)))
		}
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, role, content)
	}
}
