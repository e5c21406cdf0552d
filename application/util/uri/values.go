package uri

import (
	"strings"

	"github.com/pkg/errors"
)

type Pair struct{ Key, Value string }

// Values is an ordered multimap of query parameters or form fields.
// Keys are case-sensitive and may repeat.
type Values []Pair

func (v *Values) Add(key, value string) {
	*v = append(*v, Pair{Key: key, Value: value})
}

// Set replaces every value of key with a single value,
// keeping the position of the first occurrence.
func (v *Values) Set(key, value string) {
	for i, p := range *v {
		if p.Key == key {
			(*v)[i].Value = value
			*v = append((*v)[:i+1], without((*v)[i+1:], key)...)
			return
		}
	}
	v.Add(key, value)
}

func (v Values) Get(key string) (value string, ok bool) {
	for _, p := range v {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (v Values) All(key string) []string {
	var values []string
	for _, p := range v {
		if p.Key == key {
			values = append(values, p.Value)
		}
	}
	return values
}

func (v *Values) Del(key string) { *v = without(*v, key) }

// Encode serializes v with application/x-www-form-urlencoded rules,
// preserving order. It is what goes after '?' and in form bodies.
func (v Values) Encode() string {
	b := new(strings.Builder)
	for i, p := range v {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(QueryEscape(p.Value))
	}
	return b.String()
}

// ParseQuery parses an application/x-www-form-urlencoded string.
// Empty sequences between '&' are skipped; a pair without '=' has an empty value.
func ParseQuery(s string) (Values, error) {
	var values Values
	for _, seq := range strings.Split(s, "&") {
		if seq == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(seq, "=")

		key, err := QueryUnescape(rawKey)
		if err != nil {
			return nil, errors.Wrapf(err, "unescaping key %q", rawKey)
		}
		value, err := QueryUnescape(rawValue)
		if err != nil {
			return nil, errors.Wrapf(err, "unescaping value of %q", key)
		}

		values.Add(key, value)
	}
	return values, nil
}

func without(v Values, key string) Values {
	kept := v[:0]
	for _, p := range v {
		if p.Key != key {
			kept = append(kept, p)
		}
	}
	return kept
}
