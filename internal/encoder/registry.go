package encoder

import (
	"fmt"
	"strings"
)

// aliases maps user-facing format tokens to canonical format names.
var aliases = map[string]string{
	"jpg":  "jpeg",
	"jpe":  "jpeg",
	"jpeg": "jpeg",
	"png":  "png",
}

// Registry holds all available raster encoders keyed by format.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}

	all := []Encoder{
		&JPEGEncoder{},
		&PNGEncoder{},
	}

	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}

	return r
}

// Canonical normalizes a format token ("jpg", "JPEG", ".png") to its
// canonical name. ok is false for unknown tokens.
func Canonical(token string) (string, bool) {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "."))
	f, ok := aliases[t]
	return f, ok
}

// Get returns an encoder for the given format token, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	f, ok := Canonical(format)
	if !ok {
		return nil
	}
	return r.encoders[f]
}

// Resolve is Get with an error naming the supported formats.
func (r *Registry) Resolve(format string) (Encoder, error) {
	if enc := r.Get(format); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported raster format %q (want one of: %s)",
		format, strings.Join(r.Available(), ", "))
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range []string{"jpeg", "png"} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
