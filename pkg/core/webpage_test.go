package core

import (
	"encoding/json"
	"testing"
)

func TestMergeWebpages(t *testing.T) {
	tests := []struct {
		name  string
		in    []Webpage
		limit int
		want  []Webpage
	}{
		{
			name: "duplicate url merged",
			in:   []Webpage{{URL: "a", Content: "x"}, {URL: "a", Content: "y"}},
			want: []Webpage{{URL: "a", Content: "x\ny"}},
		},
		{
			name: "order of first occurrence kept",
			in:   []Webpage{{URL: "b", Content: "1"}, {URL: "a", Content: "2"}, {URL: "b", Content: "3"}},
			want: []Webpage{{URL: "b", Content: "1\n3"}, {URL: "a", Content: "2"}},
		},
		{
			name: "empty url dropped",
			in:   []Webpage{{URL: "", Content: "x"}, {URL: "a"}},
			want: []Webpage{{URL: "a"}},
		},
		{
			name:  "capped",
			in:    []Webpage{{URL: "a"}, {URL: "b"}, {URL: "c"}},
			limit: 2,
			want:  []Webpage{{URL: "a"}, {URL: "b"}},
		},
		{
			name: "nil input",
			want: []Webpage{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeWebpages(tt.in, tt.limit)
			if got == nil || len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWebpageLenientDecode(t *testing.T) {
	var w Webpage
	if err := json.Unmarshal([]byte(`{"url": " https://a ", "content": 42}`), &w); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if w.URL != "https://a" || w.Content != "42" {
		t.Fatalf("unexpected webpage %+v", w)
	}
	if err := json.Unmarshal([]byte(`"not an object"`), &w); err == nil {
		t.Fatal("expected error for non-object webpage")
	}
}
