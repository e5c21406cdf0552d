package http

import (
	"strings"

	"grabber/application/util/rule"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidFieldName  = errors.New("invalid field name")
	ErrInvalidFieldValue = errors.New("invalid field value")
)

type Field struct{ Name, Value string }

// ParseField splits a field line on the first ": ".
func ParseField(fieldLine string) (Field, error) {
	name, value, found := strings.Cut(fieldLine, rule.FieldSeparator)
	if !found {
		return Field{}, errors.Errorf("field separator not found on header: %q", fieldLine)
	}

	return Field{Name: name, Value: value}, nil
}

func (f Field) Text() string { return f.Name + rule.FieldSeparator + f.Value }

// Headers is an ordered multimap of header fields.
// Names are compared case-insensitively, but written as they were given.
type Headers []Field

func (h *Headers) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Set replaces every field named name with a single one,
// at the position of the first occurrence.
func (h *Headers) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Value = value
			*h = append((*h)[:i+1], without((*h)[i+1:], name)...)
			return
		}
	}
	h.Add(name, value)
}

// Get returns the first value of name.
func (h Headers) Get(name string) (value string, ok bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (h Headers) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

func (h *Headers) Del(name string) { *h = without(*h, name) }

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}

// Validate reports every field that can't be put on the wire as is.
func (h Headers) Validate() error {
	var err error
	for _, f := range h {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidFieldName, "%q", f.Name))
			continue
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidFieldValue, "%s: %q", f.Name, f.Value))
		}
	}
	return err
}

func without(h Headers, name string) Headers {
	kept := h[:0]
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	return kept
}
