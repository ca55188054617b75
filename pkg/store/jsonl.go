package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// JSONL keeps one JSON record per line. A mutex serialises writers.
type JSONL struct {
	path string
	mu   sync.Mutex
}

// NewJSONL returns a store backed by the file at path. The file is created on
// first write.
func NewJSONL(path string) *JSONL {
	return &JSONL{path: path}
}

// Path returns the backing file path.
func (s *JSONL) Path() string { return s.path }

// Load reads every line. A missing file yields no records. Lines that are
// not valid JSON objects are skipped.
func (s *JSONL) Load(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeStorage, "open results", err).WithContext("path", s.path)
	}
	defer file.Close()

	var records []Record
	reader := bufio.NewReader(file)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec Record
			if err := json.Unmarshal(bytes.ToValidUTF8(line, []byte("�")), &rec); err == nil && rec != nil {
				records = append(records, rec)
			}
		}
		if readErr != nil {
			break
		}
	}
	return records, nil
}

// Append writes rec as a single line.
func (s *JSONL) Append(_ context.Context, rec Record) error {
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.New(errors.CodeStorage, "create results dir", err).WithContext("path", s.path)
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.New(errors.CodeStorage, "open results", err).WithContext("path", s.path)
	}
	defer file.Close()

	if _, err := file.Write(line); err != nil {
		return errors.New(errors.CodeStorage, "append result", err).WithContext("path", s.path)
	}
	return nil
}

// Rewrite replaces the file atomically through a temporary sibling.
func (s *JSONL) Rewrite(_ context.Context, records []Record) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := encodeLine(rec)
		if err != nil {
			return err
		}
		buf.Write(line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.New(errors.CodeStorage, "create results dir", err).WithContext("path", s.path)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.New(errors.CodeStorage, "write results", err).WithContext("path", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.New(errors.CodeStorage, "replace results", err).WithContext("path", s.path)
	}
	return nil
}

// Close is a no-op; the file is opened per write.
func (s *JSONL) Close() error { return nil }

// encodeLine marshals rec without HTML escaping and with a trailing newline.
func encodeLine(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, errors.New(errors.CodeStorage, "encode result", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		return nil, errors.New(errors.CodeStorage, "encoded result spans lines", nil)
	}
	return buf.Bytes(), nil
}
