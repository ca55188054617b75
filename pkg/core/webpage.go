package core

import (
	"encoding/json"
	"strings"
)

// Webpage is one ranked source: a URL and the information taken from it.
type Webpage struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts non-string scalars for both fields.
func (w *Webpage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = Webpage{}
	if v, ok := raw["url"]; ok {
		w.URL = strings.TrimSpace(scalarString(v))
	}
	if v, ok := raw["content"]; ok {
		w.Content = scalarString(v)
	}
	return nil
}

// MergeWebpages drops entries without a URL, folds entries sharing a URL into
// the first occurrence (contents joined by a newline) and keeps at most limit
// entries. A limit below one keeps everything. The result is never nil.
func MergeWebpages(pages []Webpage, limit int) []Webpage {
	out := make([]Webpage, 0, len(pages))
	index := make(map[string]int, len(pages))
	for _, page := range pages {
		if page.URL == "" {
			continue
		}
		if i, ok := index[page.URL]; ok {
			switch {
			case page.Content == "":
			case out[i].Content == "":
				out[i].Content = page.Content
			default:
				out[i].Content += "\n" + page.Content
			}
			continue
		}
		index[page.URL] = len(out)
		out = append(out, page)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
