package main

import (
	"net/netip"
	"os"
	"strings"

	"grabber/application/http"
	"grabber/application/util/uri"

	"github.com/pkg/errors"
)

type headerFlag struct{ headers *http.Headers }

func (f headerFlag) String() string { return "" }

// Set parses "Name: value". The space after the colon is optional.
func (f headerFlag) Set(s string) error {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return errors.Errorf("header must be in form of 'Name: value': %q", s)
	}
	f.headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	return nil
}

type formFlag struct{ values *uri.Values }

func (f formFlag) String() string { return "" }

func (f formFlag) Set(s string) error {
	key, value, _ := strings.Cut(s, "=")
	f.values.Add(key, value)
	return nil
}

type partFlag struct {
	parts    *[]http.Part
	readFile func(name string) ([]byte, error)
}

func (f partFlag) String() string { return "" }

// Set parses "name=value", or "name=@path" for a file field.
func (f partFlag) Set(s string) error {
	name, value, found := strings.Cut(s, "=")
	if !found {
		return errors.Errorf("field must be in form of 'name=value' or 'name=@path': %q", s)
	}

	path, isFile := strings.CutPrefix(value, "@")
	if !isFile {
		*f.parts = append(*f.parts, http.TextField{Name: name, Value: value})
		return nil
	}

	content, err := f.readFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading file of field %q", name)
	}

	*f.parts = append(*f.parts, http.FileField{
		Name:     name,
		Filename: path[strings.LastIndexAny(path, `/\`)+1:],
		Content:  content,
	})
	return nil
}

type resolveFlag struct{ set map[string][]netip.Addr }

func (f resolveFlag) String() string { return "" }

// Set parses "host=addr".
func (f resolveFlag) Set(s string) error {
	host, rawAddr, found := strings.Cut(s, "=")
	if !found {
		return errors.Errorf("resolve must be in form of 'host=addr': %q", s)
	}

	addr, err := netip.ParseAddr(rawAddr)
	if err != nil {
		return errors.Wrapf(err, "parsing address of %s", host)
	}

	host = strings.ToLower(host)
	f.set[host] = append(f.set[host], addr)
	return nil
}

// bodyFlags holds the body given on the command line. At most one kind is allowed.
type bodyFlags struct {
	data     string
	dataFile string
	form     uri.Values
	parts    []http.Part
}

func (b *bodyFlags) body() (http.Body, error) {
	var (
		bodies []http.Body
		names  []string
	)

	if b.data != "" {
		bodies, names = append(bodies, http.TextBody(b.data)), append(names, "-d")
	}
	if b.dataFile != "" {
		body, err := fileBody(b.dataFile)
		if err != nil {
			return http.Body{}, err
		}
		bodies, names = append(bodies, body), append(names, "-data-file")
	}
	if len(b.form) > 0 {
		bodies, names = append(bodies, http.FormBody(b.form)), append(names, "-form")
	}
	if len(b.parts) > 0 {
		bodies, names = append(bodies, http.MultipartBody(b.parts...)), append(names, "-F")
	}

	switch len(bodies) {
	case 0:
		return http.EmptyBody(), nil
	case 1:
		return bodies[0], nil
	}
	return http.Body{}, errors.Errorf("only one body can be given, got %s", strings.Join(names, ", "))
}

// fileBody streams the file at path, or standard input for "-".
func fileBody(path string) (http.Body, error) {
	if path == "-" {
		return http.StreamBody(os.Stdin), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return http.Body{}, errors.Wrap(err, "reading body file")
	}
	return http.BinaryBody(content), nil
}
