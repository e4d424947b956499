package pixel

// SourceKind identifies how an image was supplied.
type SourceKind int

// Source kinds.
const (
	SourceNone SourceKind = iota
	SourceBase64
	SourceBytes
	SourceBuffer
)

// Source is an image in one of the accepted input encodings.
type Source struct {
	kind SourceKind
	text string
	raw  []byte
	buf  Buffer
}

// FromBase64 wraps base64 text (optionally a data URL).
func FromBase64(s string) Source {
	if s == "" {
		return Source{}
	}
	return Source{kind: SourceBase64, text: s}
}

// FromBytes wraps an encoded image file (PNG, JPEG, ...).
func FromBytes(b []byte) Source {
	if len(b) == 0 {
		return Source{}
	}
	return Source{kind: SourceBytes, raw: b}
}

// FromBuffer wraps an already decoded buffer.
func FromBuffer(b Buffer) Source {
	return Source{kind: SourceBuffer, buf: b}
}

// Kind returns the input encoding.
func (s Source) Kind() SourceKind { return s.kind }

// IsEmpty reports whether no image was supplied.
func (s Source) IsEmpty() bool { return s.kind == SourceNone }

// Base64 returns the base64 text for SourceBase64.
func (s Source) Base64() string { return s.text }

// Bytes returns the encoded bytes for SourceBytes.
func (s Source) Bytes() []byte { return s.raw }

// Buffer returns the decoded buffer for SourceBuffer.
func (s Source) Buffer() Buffer { return s.buf }
