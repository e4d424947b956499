// Package corpus loads the precomputed embedding corpus from its JSON file.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/posedex/internal/domain"
	"github.com/kailas-cloud/posedex/internal/domain/corpus"
)

const (
	fieldEmbeddings = "embeddings"
	fieldMetadata   = "metadata"
	fieldPose       = "pose_embedding"
	fieldSemantic   = "clip_embedding"
)

var _ corpus.Reader = (*Store)(nil)

// Store is an immutable, ordered, in-memory corpus.
type Store struct {
	path     string
	entries  []corpus.Entry
	index    map[string]int
	poseDim  int
	semDim   int
	metadata *corpus.Metadata

	// invalid holds the IDs of entries that had a vector dropped on load.
	invalid map[string]struct{}
}

// Load reads and validates the corpus file at path.
// Entries keep the order of their keys in the file.
func Load(path string, logger *zap.Logger) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	s, err := decode(f, logger)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", path, err)
	}
	s.path = path

	st := s.Stats()
	logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Int("entries", st.Entries),
		zap.Int("comparable", st.Comparable),
		zap.Int("invalid", st.Invalid),
		zap.Int("pose_dims", st.PoseDims),
		zap.Int("semantic_dims", st.SemanticDims),
	)
	return s, nil
}

// New builds a store from entries already in memory. Duplicate IDs keep the
// first position and the last value. Vectors whose dimension disagrees with the
// first one seen are dropped like on Load.
func New(entries []corpus.Entry, logger *zap.Logger) *Store {
	s := &Store{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		s.add(e, nil, logger)
	}
	return s
}

func decode(r io.Reader, logger *zap.Logger) (*Store, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	if err := expectDelim(dec, '{', "top level"); err != nil {
		return nil, err
	}

	s := &Store{index: make(map[string]int)}
	seenEmbeddings := false
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case fieldEmbeddings:
			// Reset on a repeated key: the last occurrence wins, as with a plain decode.
			s.entries, s.index, s.poseDim, s.semDim, s.invalid = nil, make(map[string]int), 0, 0, nil
			if err := s.decodeEmbeddings(dec, logger); err != nil {
				return nil, err
			}
			seenEmbeddings = true
		case fieldMetadata:
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, malformed("metadata: %v", err)
			}
			var m corpus.Metadata
			if err := json.Unmarshal(raw, &m); err != nil {
				logger.Warn("Ignoring unreadable corpus metadata", zap.Error(err))
				continue
			}
			s.metadata = &m
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, malformed("field %q: %v", key, err)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, malformed("top level: %v", err)
	}
	if !seenEmbeddings {
		return nil, malformed("missing %q key", fieldEmbeddings)
	}
	return s, nil
}

// decodeEmbeddings streams the entries object. Only structural faults fail the
// load; an unreadable or mis-sized vector is dropped and its entry kept.
func (s *Store) decodeEmbeddings(dec *json.Decoder, logger *zap.Logger) error {
	if err := expectDelim(dec, '{', fieldEmbeddings); err != nil {
		return err
	}
	for dec.More() {
		id, err := readKey(dec)
		if err != nil {
			return err
		}
		var raw map[string]json.RawMessage
		var rawEntry json.RawMessage
		if err := dec.Decode(&rawEntry); err != nil {
			return malformed("entry %q: %v", id, err)
		}
		if !isObject(rawEntry) {
			return malformed("entry %q is not an object", id)
		}
		if err := json.Unmarshal(rawEntry, &raw); err != nil {
			return malformed("entry %q: %v", id, err)
		}

		e := corpus.Entry{ID: id}
		var dropped []error
		if e.Pose, err = parseVector(raw[fieldPose]); err != nil {
			dropped = append(dropped, fmt.Errorf("%s: %w", fieldPose, err))
		}
		if e.Semantic, err = parseVector(raw[fieldSemantic]); err != nil {
			dropped = append(dropped, fmt.Errorf("%s: %w", fieldSemantic, err))
		}
		s.add(e, dropped, logger)
	}
	_, err := dec.Token()
	if err != nil {
		return malformed("%s: %v", fieldEmbeddings, err)
	}
	return nil
}

// add stores e after clearing any vector whose dimension disagrees with the
// corpus. dropped lists vectors the caller already discarded.
func (s *Store) add(e corpus.Entry, dropped []error, logger *zap.Logger) {
	if err := checkDim(&s.poseDim, "pose", e.Pose); err != nil {
		e.Pose = nil
		dropped = append(dropped, fmt.Errorf("%s: %w", fieldPose, err))
	}
	if err := checkDim(&s.semDim, "semantic", e.Semantic); err != nil {
		e.Semantic = nil
		dropped = append(dropped, fmt.Errorf("%s: %w", fieldSemantic, err))
	}
	for _, err := range dropped {
		logger.Warn("Dropping invalid corpus vector", zap.String("id", e.ID), zap.Error(err))
	}

	if len(dropped) > 0 {
		if s.invalid == nil {
			s.invalid = make(map[string]struct{})
		}
		s.invalid[e.ID] = struct{}{}
	} else {
		delete(s.invalid, e.ID)
	}

	if i, ok := s.index[e.ID]; ok {
		s.entries[i] = e
		return
	}
	s.index[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
}

// checkDim fixes the corpus dimension on the first vector seen.
func checkDim(dim *int, kind string, v []float32) error {
	if len(v) == 0 {
		return nil
	}
	if *dim == 0 {
		*dim = len(v)
		return nil
	}
	if len(v) != *dim {
		return &domain.DimMismatchError{Kind: kind, Expected: *dim, Got: len(v)}
	}
	return nil
}

// parseVector treats an absent, null or empty field as a missing vector.
func parseVector(raw json.RawMessage) ([]float32, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("not an array of numbers: %w", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", malformed("%v", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", malformed("unexpected token %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim, what string) error {
	tok, err := dec.Token()
	if err != nil {
		return malformed("%s: %v", what, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return malformed("%s is not an object", what)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrCorpusMalformed, fmt.Sprintf(format, args...))
}

// Path returns the file the store was loaded from, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// Len returns the number of entries, comparable or not.
func (s *Store) Len() int { return len(s.entries) }

// At returns the i-th entry in corpus order.
func (s *Store) At(i int) corpus.Entry { return s.entries[i] }

// ForEach visits entries in corpus order until fn returns false.
func (s *Store) ForEach(fn func(corpus.Entry) bool) {
	for _, e := range s.entries {
		if !fn(e) {
			return
		}
	}
}

// Get looks up an entry by identifier.
func (s *Store) Get(id string) (corpus.Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return corpus.Entry{}, false
	}
	return s.entries[i], true
}

// Dims returns the pose and semantic vector dimensions (0 when no entry has one).
func (s *Store) Dims() (poseDim, semanticDim int) { return s.poseDim, s.semDim }

// Metadata returns the crawl metadata, or nil when the file has none.
func (s *Store) Metadata() *corpus.Metadata { return s.metadata }

// Stats counts entries by completeness. Entries with a dropped vector count as
// missing that vector and also as invalid.
func (s *Store) Stats() corpus.Stats {
	st := corpus.Stats{
		Entries:      len(s.entries),
		Invalid:      len(s.invalid),
		PoseDims:     s.poseDim,
		SemanticDims: s.semDim,
	}
	for _, e := range s.entries {
		if len(e.Pose) == 0 {
			st.MissingPose++
		}
		if len(e.Semantic) == 0 {
			st.MissingSemantic++
		}
		if e.Comparable() {
			st.Comparable++
		}
	}
	return st
}
