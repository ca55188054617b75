// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

func testConversation(t *testing.T, conv Conversation) {
	t.Helper()
	ctx := context.Background()

	turns, err := conv.Turns(ctx, "unknown")
	if err != nil || len(turns) != 0 {
		t.Fatalf("unknown session: turns=%v err=%v", turns, err)
	}

	if err := conv.Append(ctx, "s1", core.Turn{Query: "q1", Answer: "a1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := conv.Append(ctx, "s1", core.Turn{Query: "q2", Answer: "a2"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := conv.Append(ctx, "s2", core.Turn{Query: "other", Answer: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err = conv.Turns(ctx, "s1")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	want := []core.Turn{{Query: "q1", Answer: "a1"}, {Query: "q2", Answer: "a2"}}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %+v", len(want), turns)
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Fatalf("turn %d = %+v, want %+v", i, turns[i], want[i])
		}
	}

	if err := conv.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if turns, _ := conv.Turns(ctx, "s1"); len(turns) != 0 {
		t.Fatalf("expected cleared session, got %+v", turns)
	}
	if turns, _ := conv.Turns(ctx, "s2"); len(turns) != 1 {
		t.Fatalf("expected s2 untouched, got %+v", turns)
	}
	if err := conv.Clear(ctx, "never-stored"); err != nil {
		t.Fatalf("Clear unknown: %v", err)
	}

	err = conv.Append(ctx, "", core.Turn{Query: "q"})
	if ae := errors.As(err); ae == nil || ae.Code != errors.CodeInvalidInput {
		t.Fatalf("expected invalid input for empty session id, got %v", err)
	}
}

func TestInMemoryConversation(t *testing.T) {
	testConversation(t, NewInMemoryConversation())
}

func TestFileConversation(t *testing.T) {
	conv, err := NewFileConversation(filepath.Join(t.TempDir(), "conversations"))
	if err != nil {
		t.Fatalf("NewFileConversation: %v", err)
	}
	testConversation(t, conv)
}

func TestFileConversationPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileConversation(dir)
	if err != nil {
		t.Fatalf("NewFileConversation: %v", err)
	}
	if err := first.Append(ctx, "chat-1", core.Turn{Query: "who", Answer: "me"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second, err := NewFileConversation(dir)
	if err != nil {
		t.Fatalf("NewFileConversation: %v", err)
	}
	turns, err := second.Turns(ctx, "chat-1")
	if err != nil || len(turns) != 1 || turns[0].Answer != "me" {
		t.Fatalf("unexpected turns %+v (%v)", turns, err)
	}

	sessions, err := second.Sessions()
	if err != nil || len(sessions) != 1 || sessions[0] != "chat-1" {
		t.Fatalf("unexpected sessions %v (%v)", sessions, err)
	}
}

func TestFileConversationSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	conv, err := NewFileConversation(dir)
	if err != nil {
		t.Fatalf("NewFileConversation: %v", err)
	}
	if err := conv.Append(context.Background(), "../escape", core.Turn{Query: "q"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err != nil {
		t.Fatalf("expected session file inside base dir: %v", err)
	}
}

func TestFileConversationCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	conv, err := NewFileConversation(dir)
	if err != nil {
		t.Fatalf("NewFileConversation: %v", err)
	}
	_, err = conv.Turns(context.Background(), "bad")
	if ae := errors.As(err); ae == nil || ae.Code != errors.CodeStorage {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestInMemoryConversationConcurrentAppend(t *testing.T) {
	conv := NewInMemoryConversation()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = conv.Append(ctx, "s", core.Turn{Query: fmt.Sprintf("q%d", i)})
		}(i)
	}
	wg.Wait()

	turns, _ := conv.Turns(ctx, "s")
	if len(turns) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(turns))
	}
}
