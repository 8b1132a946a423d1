// Package ticket parses the optional issue-tracker link attached to a
// feature request. A reference is empty, an absolute http(s) URL, or a bare
// ticket key such as "PROJ-123" that is expanded against a configured base URL
// when the feature is saved.
package ticket

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalid is returned by Parse for input that is neither blank, an
// http(s) URL nor a ticket key.
var ErrInvalid = errors.New("ticket reference must be an http(s) URL or a key like PROJ-123")

// Kind tags the variant held by a Ref.
type Kind int

const (
	Empty Kind = iota
	URL
	Key
)

func (k Kind) String() string {
	switch k {
	case URL:
		return "url"
	case Key:
		return "key"
	default:
		return "empty"
	}
}

var keyRE = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// Ref is a parsed ticket reference. The zero value is Empty.
type Ref struct {
	kind  Kind
	value string
}

// Kind returns the variant tag.
func (r Ref) Kind() Kind { return r.kind }

// String returns the trimmed input the Ref was parsed from.
func (r Ref) String() string { return r.value }

// Parse classifies raw after trimming surrounding whitespace.
func Parse(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, nil
	}
	if keyRE.MatchString(s) {
		return Ref{kind: Key, value: s}, nil
	}
	if isHTTPURL(s) {
		return Ref{kind: URL, value: s}, nil
	}
	return Ref{}, ErrInvalid
}

// Valid reports whether raw would parse.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Resolve returns the value to persist. A Key is appended to base (with a
// "/" inserted when base lacks a trailing slash); a blank base leaves the key
// unexpanded. URLs and Empty are returned unchanged.
func (r Ref) Resolve(base string) string {
	if r.kind != Key {
		return r.value
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return r.value
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + r.value
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
