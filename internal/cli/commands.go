// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/mailassist/internal/assistant"
	"github.com/jeranaias/mailassist/internal/mail"
)

// =============================================================================
// ASK
// =============================================================================

// AskCommand returns the one-shot question command.
func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question",
		ArgsUsage: "PROMPT",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Attach `FILE` (repeatable); PDFs are read as text, images are sent to the model",
			},
		},
		Action: runAsk,
	}
}

func runAsk(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" && !stdinIsTerminal() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return assistant.ErrEmptyPrompt
	}

	rt, err := newRuntime(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := c.Context
	if err := rt.ensureModel(ctx); err != nil {
		return err
	}

	printer := newAnswerPrinter(rt.out, isTerminalWriter(rt.out))
	rt.assistant.OnPartial(printer.Update)

	reply, err := rt.assistant.Ask(ctx, prompt, c.StringSlice("file"))
	if err != nil {
		return err
	}
	return finishReply(rt, printer, reply)
}

// finishReply prints the end of an answer and reports attachment problems.
func finishReply(rt *runtime, printer *answerPrinter, reply assistant.Reply) error {
	printAttachmentNotes(rt.errOut, reply)
	if !reply.OK {
		return fmt.Errorf("no response from %s", rt.settings.ServerURL())
	}
	printer.Finish(reply.Answer)
	return nil
}

func printAttachmentNotes(w io.Writer, reply assistant.Reply) {
	for _, f := range reply.Attachments.Failed {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("[Skipped]"), f.Error())
	}
	for _, name := range reply.Attachments.Opaque {
		fmt.Fprintf(w, "%s %s (unsupported type, not sent)\n", DimStyle.Render("[Attached]"), name)
	}
}

// =============================================================================
// MODELS
// =============================================================================

// ModelsCommand returns the model listing command.
func ModelsCommand() *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List models available on the Ollama server",
		Action: runModels,
	}
}

func runModels(c *cli.Context) error {
	rt, err := newRuntime(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	models := rt.gateway.Models(c.Context)
	if len(models) == 0 {
		return errors.New(rt.noModelsHint(c.Context))
	}

	selected := rt.assistant.Model()
	if selected == "" {
		selected = models[0].Name
	}
	for _, m := range models {
		marker := "  "
		name := m.Name
		if m.Name == selected {
			marker = "* "
			name = CommandStyle.Render(name)
		}
		fmt.Fprintf(rt.out, "%s%s  %s\n", marker, name, DimStyle.Render(m.FormatSize()))
	}
	return nil
}

// =============================================================================
// EMAIL
// =============================================================================

// SummarizeCommand returns the email summary command.
func SummarizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "summarize",
		Usage: "Summarize the email selected in the mail client",
		Action: func(c *cli.Context) error {
			return runEmailAction(c, assistant.IntentSummarize)
		},
	}
}

// ReplyCommand returns the reply drafting command.
func ReplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "reply",
		Usage: "Draft a reply to the email selected in the mail client",
		Action: func(c *cli.Context) error {
			return runEmailAction(c, assistant.IntentReply)
		},
	}
}

// EmailCommand returns the command that shows the selected email.
func EmailCommand() *cli.Command {
	return &cli.Command{
		Name:  "email",
		Usage: "Show the email selected in the mail client",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			rec := rt.poller.Poll(c.Context)
			if !rec.OK() {
				return errors.New(rec.Err)
			}
			printEmail(rt.out, rec.Email)
			return nil
		},
	}
}

func runEmailAction(c *cli.Context, intent assistant.Intent) error {
	rt, err := newRuntime(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := c.Context
	rt.poller.Poll(ctx)
	if err := rt.ensureModel(ctx); err != nil {
		return err
	}

	printer := newAnswerPrinter(rt.out, isTerminalWriter(rt.out))
	rt.assistant.OnPartial(printer.Update)

	reply, err := emailAction(ctx, rt.assistant, intent)
	if err != nil {
		return err
	}
	printSpamNote(rt.errOut, reply)
	return finishReply(rt, printer, reply)
}

func emailAction(ctx context.Context, a *assistant.Assistant, intent assistant.Intent) (assistant.Reply, error) {
	if intent == assistant.IntentReply {
		return a.ReplyEmail(ctx)
	}
	return a.SummarizeEmail(ctx)
}

func printSpamNote(w io.Writer, reply assistant.Reply) {
	if reply.Spam == nil || !reply.Spam.Suspicious() {
		return
	}
	fmt.Fprintf(w, "%s likely spam (%d/100): %s\n",
		WarningStyle.Render("[Spam]"), reply.Spam.Score, reply.Spam.Reason)
}

// printEmail renders the selected email the way a mail viewer would.
func printEmail(w io.Writer, e *mail.Email) {
	fmt.Fprintln(w, TitleStyle.Render(e.Subject))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("From:"), ValueStyle.Render(e.Sender))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("To:"), ValueStyle.Render(e.Recipient))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Received:"), ValueStyle.Render(e.FormatReceived()))
	for _, a := range e.Attachments {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Attachment:"), ValueStyle.Render(a))
	}
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintln(w, e.Body)
}
