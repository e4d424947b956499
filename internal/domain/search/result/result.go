package result

// Ranked is a corpus item with its fused similarity score.
type Ranked struct {
	id    string
	score float64
}

// NewRanked creates a ranked item.
func NewRanked(id string, score float64) Ranked {
	return Ranked{id: id, score: score}
}

// ID returns the corpus identifier (relative image path).
func (r *Ranked) ID() string { return r.id }

// Score returns the fused similarity in [-1, 1].
func (r *Ranked) Score() float64 { return r.score }

// Hit is a ranked item with its image payload loaded.
type Hit struct {
	Ranked
	image []byte
}

// NewHit attaches an image payload to a ranked item.
func NewHit(r Ranked, image []byte) Hit {
	return Hit{Ranked: r, image: image}
}

// Image returns the stored image bytes.
func (h *Hit) Image() []byte { return h.image }
