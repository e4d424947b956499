// Package corpus holds the precomputed per-image embeddings searched by a query.
package corpus

// Entry is one corpus item. Either vector may be nil when it could not be computed.
type Entry struct {
	ID       string
	Pose     []float32
	Semantic []float32
}

// Comparable reports whether the entry carries both vectors and can be ranked.
func (e Entry) Comparable() bool {
	return len(e.Pose) > 0 && len(e.Semantic) > 0
}

// Metadata describes the crawl that produced the corpus. Informational only.
type Metadata struct {
	TotalImages      int `json:"total_images"`
	Successful       int `json:"successful"`
	Failed           int `json:"failed"`
	NoPersonDetected int `json:"no_person_detected"`
}

// Stats summarizes a loaded corpus.
type Stats struct {
	Entries         int
	Comparable      int
	MissingPose     int
	MissingSemantic int
	// Invalid counts entries that had a vector dropped as unreadable or mis-sized.
	Invalid      int
	PoseDims     int
	SemanticDims int
}

// Reader is read-only access to a loaded corpus, in corpus order.
type Reader interface {
	Len() int
	At(i int) Entry
	Get(id string) (Entry, bool)
	Dims() (poseDim, semanticDim int)
	Metadata() *Metadata
	Stats() Stats
}
