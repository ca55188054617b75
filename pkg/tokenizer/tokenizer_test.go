package tokenizer

import (
	"strings"
	"sync"
	"testing"
)

func TestBPERoundTrip(t *testing.T) {
	tok := Default()
	inputs := []string{
		"",
		"Given Query: who won the 2018 World Cup?",
		"中文问题：谁赢得了比赛？",
		"tabs\tand\nnewlines  double",
		`{"task_name": "x"}`,
		"emoji 🙂 and accents café",
	}
	for _, in := range inputs {
		if got := tok.Decode(tok.Encode(in)); got != in {
			t.Errorf("round trip %q -> %q", in, got)
		}
	}
}

func TestBPECountsGPT2Tokens(t *testing.T) {
	tok := Default()
	tests := []struct {
		in   string
		want int
	}{
		{in: "The quick brown fox jumps over the lazy dog.", want: 10},
		{in: "hello world", want: 2},
		{in: "", want: 0},
	}
	for _, tt := range tests {
		if got := tok.Count(tt.in); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBPEDecodeDropsPartialRunes(t *testing.T) {
	tok := Default()
	ids := tok.Encode("谁赢")
	for n := 0; n <= len(ids); n++ {
		got := tok.Decode(ids[:n])
		if strings.ContainsRune(got, '\uFFFD') || !strings.HasPrefix("谁赢", got) {
			t.Fatalf("prefix %d decoded to %q", n, got)
		}
	}
}

func TestBPESharedAcrossGoroutines(t *testing.T) {
	tok := Default()
	want := tok.Count("https://example.com/a?id=42 observation")

	var wg sync.WaitGroup
	errs := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := tok.Count("https://example.com/a?id=42 observation"); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Fatalf("concurrent count %d, want %d", got, want)
	}
}
