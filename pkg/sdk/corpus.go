package posedex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Corpus returns statistics about the served corpus.
func (c *Client) Corpus(ctx context.Context) (CorpusStats, error) {
	var st CorpusStats
	if err := c.do(ctx, "corpus_stats", http.MethodGet, "/corpus", nil, &st); err != nil {
		return CorpusStats{}, err
	}
	return st, nil
}

// ReloadCorpus asks the server to re-read its corpus file and returns the new statistics.
func (c *Client) ReloadCorpus(ctx context.Context) (CorpusStats, error) {
	var st CorpusStats
	if err := c.do(ctx, "corpus_reload", http.MethodPost, "/corpus/reload", nil, &st); err != nil {
		return CorpusStats{}, err
	}
	return st, nil
}

// Entry looks up one corpus item. Identifiers are image paths and may contain slashes.
func (c *Client) Entry(ctx context.Context, id string, includeVectors bool) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("posedex: entry: %w: id is required", ErrInvalidInput)
	}
	segs := strings.Split(id, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	path := "/corpus/entries/" + strings.Join(segs, "/")
	if includeVectors {
		path += "?include_vectors=true"
	}

	var e Entry
	if err := c.do(ctx, "corpus_entry", http.MethodGet, path, nil, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
