// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	images := []string{"aW1n"}
	msg := NewUserMessage("Hello", images...)

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())

	images[0] = "changed"
	assert.Equal(t, "aW1n", msg.Images[0], "message must not alias caller slice")
}

func TestMessage_ToOllama(t *testing.T) {
	msg := NewUserMessage("look", "aW1n", "b3Ro")
	wire := msg.ToOllama()

	assert.Equal(t, "user", wire.Role)
	assert.Equal(t, "look", wire.Content)
	assert.Equal(t, []string{"aW1n", "b3Ro"}, wire.Images)
}

func TestMessage_Preview(t *testing.T) {
	assert.Equal(t, "short", NewUserMessage("short").Preview(10))
	assert.Equal(t, "hello w...", NewUserMessage("hello world again").Preview(10))
	assert.Equal(t, "日本...", NewUserMessage("日本語テキスト").Preview(7), "wide characters count two columns")
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, "Assistant", RoleAssistant.DisplayName())
	assert.Equal(t, "other", Role("other").DisplayName())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AppendPreservesOrder(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("one"))
	conv.Append(NewAssistantMessage("two"))
	conv.Append(NewUserMessage("three"))

	snap := conv.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "one", snap[0].Content)
	assert.Equal(t, "two", snap[1].Content)
	assert.Equal(t, "three", snap[2].Content)
}

func TestConversation_SnapshotIsDeepCopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("picture", "aW1n"))

	snap := conv.Snapshot()
	if diff := cmp.Diff(conv.Snapshot(), snap); diff != "" {
		t.Fatalf("snapshot differs from store (-store +snap):\n%s", diff)
	}

	snap[0].Content = "mutated"
	snap[0].Images[0] = "mutated"
	snap = append(snap, NewUserMessage("extra"))

	live := conv.Snapshot()
	require.Len(t, live, 1)
	assert.Equal(t, "picture", live[0].Content)
	assert.Equal(t, "aW1n", live[0].Images[0])
}

func TestConversation_Clear(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("x"))
	conv.Clear()

	assert.Equal(t, 0, conv.Len())
	assert.Empty(t, conv.Snapshot())
}

func TestTurn_FinishAppendsAnswer(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("earlier"))

	turn := conv.Begin(NewUserMessage("q"))
	history := turn.History()
	require.Len(t, history, 2)
	assert.Equal(t, "q", history[1].Content)

	assert.True(t, turn.Current())
	assert.True(t, turn.Finish(NewAssistantMessage("a")))

	live := conv.Snapshot()
	require.Len(t, live, 3)
	assert.Equal(t, RoleAssistant, live[2].Role)
	assert.Equal(t, "a", live[2].Content)
}

func TestTurn_FinishAfterClearIsDropped(t *testing.T) {
	conv := NewConversation()
	turn := conv.Begin(NewUserMessage("q"))

	conv.Clear()
	assert.False(t, turn.Current())
	assert.False(t, turn.Finish(NewAssistantMessage("late")))
	assert.Empty(t, conv.Snapshot())

	next := conv.Begin(NewUserMessage("second"))
	assert.True(t, next.Finish(NewAssistantMessage("second answer")))

	live := conv.Snapshot()
	require.Len(t, live, 2)
	assert.Equal(t, RoleUser, live[0].Role)
	assert.Equal(t, "second", live[0].Content)
}

func TestTurn_PinDoesNotAppend(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("q"))

	turn := conv.Pin()
	assert.Len(t, turn.History(), 1)
	assert.Equal(t, 1, conv.Len())
}

func TestConversation_ConcurrentAppend(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv.Append(NewUserMessage(fmt.Sprintf("msg %d", i)))
			_ = conv.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, conv.Len())
}

func TestToOllamaMessages(t *testing.T) {
	msgs := []Message{NewUserMessage("q"), NewAssistantMessage("a")}
	wire := ToOllamaMessages(msgs)

	require.Len(t, wire, 2)
	assert.Equal(t, "user", wire[0].Role)
	assert.Equal(t, "assistant", wire[1].Role)
}

// =============================================================================
// DISPLAY LOG TESTS
// =============================================================================

func TestDisplayLog_Exchange(t *testing.T) {
	log := NewDisplayLog()
	log.AddQuestion(`Summarize email: "Lunch"`, "llava:7b")
	log.AddAnswer("It is about lunch.", true)

	want := []string{"User:", `Summarize email: "Lunch"`, "AI (llava:7b):", "It is about lunch."}
	assert.Equal(t, want, log.Entries())
}

func TestDisplayLog_AbsentAnswer(t *testing.T) {
	log := NewDisplayLog()
	log.AddQuestion("hi", "m")
	log.AddAnswer("partial", false)

	entries := log.Entries()
	assert.Equal(t, NoResponse, entries[len(entries)-1])
}

func TestDisplayLog_EntriesIsCopy(t *testing.T) {
	log := NewDisplayLog()
	log.AddQuestion("hi", "m")

	entries := log.Entries()
	entries[0] = "changed"
	assert.Equal(t, "User:", log.Entries()[0])

	log.Clear()
	assert.Empty(t, log.Entries())
}
