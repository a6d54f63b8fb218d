package streamdec

import (
	"net/textproto"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Standard field names used by the decode pipeline.
const (
	ContentEncoding = "Content-Encoding"
	ContentLength   = "Content-Length"
	ContentType     = "Content-Type"
)

// Field is a single header key/value pair. Order of fields is preserved.
type Field struct {
	Name  string
	Value string
}

// Headers is the header set that opens a stream: a status token plus
// ordered fields. Field names match case-insensitively.
type Headers struct {
	status string
	fields []Field
}

// NewHeaders builds a header set with the given status token and fields.
// Fields with invalid names or values are dropped.
func NewHeaders(status string, fields ...Field) *Headers {
	h := &Headers{status: status}
	for _, f := range fields {
		h.Set(f.Name, f.Value)
	}
	return h
}

// Status returns the status token.
func (h *Headers) Status() string { return h.status }

// Fields returns the fields in order. The slice is shared; treat as
// read-only.
func (h *Headers) Fields() []Field { return h.fields }

// Get returns the first value of the named field, matching
// case-insensitively.
func (h *Headers) Get(name string) (string, bool) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range h.fields {
		if textproto.CanonicalMIMEHeaderKey(f.Name) == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the named field, or appends it if absent. Invalid names and
// values are ignored.
func (h *Headers) Set(name, value string) {
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	for i, f := range h.fields {
		if textproto.CanonicalMIMEHeaderKey(f.Name) == key {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Del removes every field with the given name.
func (h *Headers) Del(name string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	kept := h.fields[:0]
	for _, f := range h.fields {
		if textproto.CanonicalMIMEHeaderKey(f.Name) != key {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	fields := make([]Field, len(h.fields))
	copy(fields, h.fields)
	return &Headers{status: h.status, fields: fields}
}

// contentEncoding returns the lower-cased encoding token, or "" when the
// field is absent, empty, or carries a multi-token value (which this layer
// does not decode).
func (h *Headers) contentEncoding() string {
	v, ok := h.Get(ContentEncoding)
	if !ok {
		return ""
	}
	token := strings.ToLower(strings.TrimSpace(v))
	if token == "" || strings.ContainsAny(token, ", \t") {
		return ""
	}
	return token
}

func (h *Headers) isStreamObject() {}

// Trailers is the optional trailing field set of a stream.
type Trailers struct {
	fields []Field
}

// NewTrailers builds a trailer set from the given fields.
func NewTrailers(fields ...Field) *Trailers {
	t := &Trailers{}
	for _, f := range fields {
		if httpguts.ValidHeaderFieldName(f.Name) && httpguts.ValidHeaderFieldValue(f.Value) {
			t.fields = append(t.fields, f)
		}
	}
	return t
}

// Fields returns the trailer fields in order.
func (t *Trailers) Fields() []Field { return t.fields }

// Get returns the first value of the named trailer field.
func (t *Trailers) Get(name string) (string, bool) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range t.fields {
		if textproto.CanonicalMIMEHeaderKey(f.Name) == key {
			return f.Value, true
		}
	}
	return "", false
}

func (t *Trailers) isStreamObject() {}
