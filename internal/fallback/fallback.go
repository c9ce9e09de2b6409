// Package fallback supplies the content served when no asset matches a
// request path.
package fallback

import (
	"path"
	"strings"
)

// Handler returns the content for an unmatched request path, or false to
// answer 404. It receives the raw request path, leading slash included.
// Handlers are captured once at server construction and must be safe for
// concurrent use.
type Handler func(requestPath string) ([]byte, bool)

// None never supplies content
func None() Handler {
	return func(string) ([]byte, bool) {
		return nil, false
	}
}

// Static serves content for every unmatched path
func Static(content []byte) Handler {
	content = clone(content)
	return func(string) ([]byte, bool) {
		return content, true
	}
}

// SPA serves content for unmatched paths that look like client-side routes,
// i.e. whose last segment has no file extension. Missing files such as
// /favicon.ico still get a 404.
func SPA(content []byte) Handler {
	content = clone(content)
	return func(requestPath string) ([]byte, bool) {
		trimmed := strings.TrimSuffix(requestPath, "/")
		if trimmed != "" && path.Ext(path.Base(trimmed)) != "" {
			return nil, false
		}
		return content, true
	}
}

// Mode names a handler constructor in configuration
type Mode string

const (
	ModeNone   Mode = "none"
	ModeStatic Mode = "static"
	ModeSPA    Mode = "spa"
)

// ForMode builds the handler configured by mode around content
func ForMode(mode Mode, content []byte) Handler {
	switch mode {
	case ModeStatic:
		return Static(content)
	case ModeSPA:
		return SPA(content)
	default:
		return None()
	}
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
