package streamdec

import (
	"strings"

	"github.com/streamdec/streamdec/internal/compress"
)

// Registry maps content-encoding tokens to decoder factories. It is
// immutable after construction; lookups are case-insensitive. A missing
// token is not an error: the stream is forwarded untouched.
type Registry struct {
	factories map[string]DecoderFactory
}

// NewRegistry builds a registry from the given token -> factory entries.
// The entries are copied; tokens are matched case-insensitively.
func NewRegistry(entries map[string]DecoderFactory) *Registry {
	factories := make(map[string]DecoderFactory, len(entries))
	for token, factory := range entries {
		factories[strings.ToLower(token)] = factory
	}
	return &Registry{factories: factories}
}

// Lookup returns the factory registered for token, or nil.
func (r *Registry) Lookup(token string) DecoderFactory {
	if r == nil || token == "" {
		return nil
	}
	return r.factories[strings.ToLower(token)]
}

var defaultRegistry = NewRegistry(map[string]DecoderFactory{
	compress.Gzip:    CodecFactory(compress.Gzip),
	compress.Deflate: CodecFactory(compress.Deflate),
	compress.Brotli:  CodecFactory(compress.Brotli),
	compress.Zstd:    CodecFactory(compress.Zstd),
})

// DefaultRegistry returns the registry with the built-in codecs: gzip,
// deflate, br and zstd.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
