// SPDX-License-Identifier: Apache-2.0

package browse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

const sentence = "The Go programming language was announced in November 2009 and reached version 1.0 in March 2012. "

func articlePage(title string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><nav>menu</nav><article><h1>" + title + "</h1>")
	for i := 0; i < 6; i++ {
		b.WriteString("<p>" + strings.Repeat(sentence, 3) + "</p>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

type fakeOracle struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeOracle) Invoke(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeRenderer struct {
	calls int
	page  string
	err   error
}

func (f *fakeRenderer) HTML(context.Context, string) (string, error) {
	f.calls++
	return f.page, f.err
}

func quiet() Option { return WithLogger(slog.New(slog.DiscardHandler)) }

func TestReadPlainFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, articlePage("Go history"))
	}))
	defer srv.Close()

	renderer := &fakeRenderer{}
	tool := New(WithRenderer(renderer), quiet())
	page, err := tool.Read(context.Background(), srv.URL+"/go")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.Contains(page.Text, "announced in November 2009") {
		t.Errorf("text = %q", page.Text)
	}
	if strings.Contains(page.Text, "menu") {
		t.Errorf("navigation not stripped: %q", page.Text)
	}
	if renderer.calls != 0 {
		t.Errorf("renderer used for a readable page")
	}
}

func TestReadRenderFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><body><div id="app"></div></body></html>`)
	}))
	defer srv.Close()

	renderer := &fakeRenderer{page: articlePage("Rendered")}
	tool := New(WithRenderer(renderer), quiet())
	page, err := tool.Read(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if renderer.calls != 1 || !strings.Contains(page.Text, "version 1.0") {
		t.Fatalf("calls = %d text = %q", renderer.calls, page.Text)
	}
}

func TestReadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tool := New(quiet())
	if _, err := tool.Read(context.Background(), srv.URL); errors.CodeOf(err) != errors.CodeToolFailure {
		t.Fatalf("404 err = %v", err)
	}
	if _, err := tool.Read(context.Background(), "not a url"); errors.CodeOf(err) != errors.CodeInvalidInput {
		t.Fatalf("bad url err = %v", err)
	}
	if _, err := tool.Call(context.Background(), map[string]string{"question": "q"}); errors.CodeOf(err) != errors.CodeInvalidInput {
		t.Fatalf("missing url err = %v", err)
	}
}

func TestCallSummarisesChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, articlePage("Go history"))
	}))
	defer srv.Close()

	oracle := &fakeOracle{reply: "Go 1.0 shipped in 2012."}
	tool := New(WithOracle(oracle, "fast"), WithLimits(0, 500), quiet())
	out, err := tool.Call(context.Background(), map[string]string{"url": srv.URL, "question": "When did Go 1.0 ship?"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(oracle.prompts) < 2 {
		t.Fatalf("expected several chunks, got %d prompts", len(oracle.prompts))
	}
	if len(out.PromptResponses) != len(oracle.prompts) {
		t.Errorf("exchanges = %d, prompts = %d", len(out.PromptResponses), len(oracle.prompts))
	}
	if !strings.Contains(oracle.prompts[0], "When did Go 1.0 ship?") {
		t.Errorf("prompt lacks question: %q", oracle.prompts[0])
	}
	if !strings.HasPrefix(out.Answer, "url: "+srv.URL) || !strings.Contains(out.Answer, "Go 1.0 shipped in 2012.") {
		t.Errorf("answer = %q", out.Answer)
	}
	if spec := tool.Spec(); spec.Name != "browse_website" || len(spec.Params) != 2 {
		t.Errorf("spec = %+v", spec)
	}
}

func TestCallFatalOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, articlePage("Go history"))
	}))
	defer srv.Close()

	oracle := &fakeOracle{err: errors.Fatal("locked", nil)}
	tool := New(WithOracle(oracle, "fast"), quiet())
	if _, err := tool.Call(context.Background(), map[string]string{"url": srv.URL}); !errors.IsFatal(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "  ", 10, nil},
		{"fits", "abc\ndef", 10, []string{"abc\ndef"}},
		{"line break", "abcd\nefgh", 6, []string{"abcd", "efgh"}},
		{"long line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "一二三四五", 2, []string{"一二", "三四", "五"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunk = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
