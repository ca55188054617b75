// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// ConversationEntry is one stored turn of a multi-turn chat.
type ConversationEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn returns the entry as a history turn.
func (e ConversationEntry) Turn() core.Turn {
	return core.Turn{Query: e.Query, Answer: e.Answer}
}

// Conversation keeps the turns of chat sessions so a follow-up query can be
// answered with the earlier turns as history.
type Conversation interface {
	// Append stores a finished turn for the session.
	Append(ctx context.Context, sessionID string, turn core.Turn) error

	// Turns returns the stored turns of the session, oldest first.
	Turns(ctx context.Context, sessionID string) ([]core.Turn, error)

	// Clear removes the session.
	Clear(ctx context.Context, sessionID string) error
}

func newEntry(sessionID string, turn core.Turn) ConversationEntry {
	return ConversationEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Query:     turn.Query,
		Answer:    turn.Answer,
		CreatedAt: time.Now(),
	}
}

func entryTurns(entries []ConversationEntry) []core.Turn {
	if len(entries) == 0 {
		return nil
	}
	turns := make([]core.Turn, len(entries))
	for i, e := range entries {
		turns[i] = e.Turn()
	}
	return turns
}

// InMemoryConversation keeps sessions in process memory.
type InMemoryConversation struct {
	mu       sync.RWMutex
	sessions map[string][]ConversationEntry
}

// NewInMemoryConversation creates an empty in-memory conversation store.
func NewInMemoryConversation() *InMemoryConversation {
	return &InMemoryConversation{sessions: make(map[string][]ConversationEntry)}
}

// Append implements Conversation.
func (m *InMemoryConversation) Append(_ context.Context, sessionID string, turn core.Turn) error {
	if sessionID == "" {
		return errors.New(errors.CodeInvalidInput, "session id is required", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], newEntry(sessionID, turn))
	return nil
}

// Turns implements Conversation.
func (m *InMemoryConversation) Turns(_ context.Context, sessionID string) ([]core.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return entryTurns(m.sessions[sessionID]), nil
}

// Clear implements Conversation.
func (m *InMemoryConversation) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// FileConversation stores each session as a JSON file under a directory.
type FileConversation struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileConversation creates the directory when needed.
func NewFileConversation(baseDir string) (*FileConversation, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.New(errors.CodeStorage, "create conversation directory", err).
			WithContext("dir", baseDir)
	}
	return &FileConversation{baseDir: baseDir}, nil
}

func (f *FileConversation) sessionFile(sessionID string) string {
	// filepath.Base keeps ids like "../x" inside baseDir.
	return filepath.Join(f.baseDir, filepath.Base(sessionID)+".json")
}

// Append implements Conversation.
func (f *FileConversation) Append(_ context.Context, sessionID string, turn core.Turn) error {
	if sessionID == "" {
		return errors.New(errors.CodeInvalidInput, "session id is required", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(sessionID)
	if err != nil {
		return err
	}
	return f.save(sessionID, append(entries, newEntry(sessionID, turn)))
}

// Turns implements Conversation. An unknown session has no turns.
func (f *FileConversation) Turns(_ context.Context, sessionID string) ([]core.Turn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := f.load(sessionID)
	if err != nil {
		return nil, err
	}
	return entryTurns(entries), nil
}

// Clear implements Conversation.
func (f *FileConversation) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.sessionFile(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return errors.New(errors.CodeStorage, "remove conversation", err).WithContext("session_id", sessionID)
	}
	return nil
}

// Sessions lists the stored session ids in lexical order.
func (f *FileConversation) Sessions() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dirEntries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "list conversations", err)
	}
	var sessions []string
	for _, entry := range dirEntries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (f *FileConversation) load(sessionID string) ([]ConversationEntry, error) {
	data, err := os.ReadFile(f.sessionFile(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeStorage, "read conversation", err).WithContext("session_id", sessionID)
	}
	var entries []ConversationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.New(errors.CodeStorage, fmt.Sprintf("parse conversation %s", sessionID), err)
	}
	return entries, nil
}

func (f *FileConversation) save(sessionID string, entries []ConversationEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.New(errors.CodeStorage, "encode conversation", err)
	}
	if err := os.WriteFile(f.sessionFile(sessionID), data, 0o644); err != nil {
		return errors.New(errors.CodeStorage, "write conversation", err).WithContext("session_id", sessionID)
	}
	return nil
}
