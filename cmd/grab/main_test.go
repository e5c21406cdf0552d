package main

import (
	"bytes"
	"context"
	"io"
	"net/netip"
	"os"
	"testing"

	"grabber/application/http"
	"grabber/application/util/domain"
	"grabber/application/util/uri"
	"grabber/transport"
	"grabber/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-X", "POST",
		"-H", "X-Test-Header: value",
		"-H", "Accept:*/*",
		"-form", "a=1",
		"-form", "b",
		"-resolve", "Example.com=127.0.0.1",
		"-random-boundary", "-strict", "-i", "-fail", "-v",
		"http://example.com/post",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "POST", cfg.method)
	assert.Equal(t, http.Headers{{Name: "X-Test-Header", Value: "value"}, {Name: "Accept", Value: "*/*"}}, cfg.headers)
	assert.Equal(t, uri.Values{{Key: "a", Value: "1"}, {Key: "b", Value: ""}}, cfg.body.form)
	assert.Equal(t, map[string][]netip.Addr{"example.com": {netip.MustParseAddr("127.0.0.1")}}, cfg.resolve)
	assert.True(t, cfg.randomBoundary)
	assert.True(t, cfg.strict)
	assert.True(t, cfg.include)
	assert.True(t, cfg.fail)
	assert.True(t, cfg.verbose)
	assert.False(t, cfg.insecure)
	assert.Equal(t, "http://example.com/post", cfg.url)
}

func TestParseFlagsInvalid(t *testing.T) {
	testcases := []struct {
		desc string
		args []string
	}{
		{desc: "no url", args: []string{"-X", "GET"}},
		{desc: "two urls", args: []string{"http://a/", "http://b/"}},
		{desc: "header without colon", args: []string{"-H", "broken", "http://a/"}},
		{desc: "field without equal sign", args: []string{"-F", "broken", "http://a/"}},
		{desc: "bad resolve address", args: []string{"-resolve", "a=not-ip", "http://a/"}},
		{desc: "unknown flag", args: []string{"-nope", "http://a/"}},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := parseFlags(tc.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestPartFlag(t *testing.T) {
	errMissing := errors.New("missing")
	var parts []http.Part
	f := partFlag{
		parts: &parts,
		readFile: func(name string) ([]byte, error) {
			if name == "dir/a.txt" {
				return []byte("content"), nil
			}
			return nil, errMissing
		},
	}

	require.NoError(t, f.Set("name=value"))
	require.NoError(t, f.Set("file=@dir/a.txt"))
	assert.ErrorIs(t, f.Set("other=@nope"), errMissing)

	assert.Equal(t, []http.Part{
		http.TextField{Name: "name", Value: "value"},
		http.FileField{Name: "file", Filename: "a.txt", Content: []byte("content")},
	}, parts)
}

func TestBodyFlags(t *testing.T) {
	body, err := (&bodyFlags{}).body()
	require.NoError(t, err)
	assert.Equal(t, http.KindEmpty, body.Kind())

	body, err = (&bodyFlags{data: "text"}).body()
	require.NoError(t, err)
	assert.Equal(t, http.KindText, body.Kind())

	body, err = (&bodyFlags{parts: []http.Part{http.TextField{Name: "a"}}}).body()
	require.NoError(t, err)
	assert.Equal(t, http.KindMultipart, body.Kind())

	file, err := os.CreateTemp(t.TempDir(), "body")
	require.NoError(t, err)
	_, err = file.WriteString("\x00binary")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	body, err = (&bodyFlags{dataFile: file.Name()}).body()
	require.NoError(t, err)
	assert.Equal(t, http.KindBinary, body.Kind())

	_, err = (&bodyFlags{data: "text", form: uri.Values{{Key: "a", Value: "1"}}}).body()
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	pt := pipe.NewNetwork(clock.New())
	addr := transport.Addr{Protocol: transport.TCP, Host: "example.com", Port: 80}

	lis, err := pt.Listen(addr)
	require.NoError(t, err)
	defer lis.Close()

	request := "POST /post HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Connection: close\r\n" +
		"X-Test-Header: value\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello\r\n"

	done := make(chan struct{})
	go func() {
		defer close(done)

		conn, err := lis.Accept(context.Background())
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		buf := make([]byte, len(request))
		_, err = io.ReadFull(conn, buf)
		assert.NoError(t, err)
		assert.Equal(t, request, string(buf))

		_, err = conn.Write([]byte("HTTP/1.1 418 I'm a teapot\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\ncaf\xe9"))
		assert.NoError(t, err)
	}()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-X", "POST", "-H", "X-Test-Header: value", "-d", "hello", "-i", "-fail",
		"http://example.com/post",
	}, &stdout, &stderr, pt)
	<-done

	assert.Equal(t, exitStatus, code)
	assert.Equal(t, "HTTP/1.1 418 I'm a teapot\n"+
		"Content-Type: text/plain; charset=iso-8859-1\n"+
		"\n"+
		"café", stdout.String())
	assert.Contains(t, stderr.String(), "unsuccessful response")
}

func TestRunErrors(t *testing.T) {
	pt := pipe.NewNetwork(clock.New())

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"http://nowhere.test/"}, io.Discard, &stderr, pt)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "failed to grab")

	code = run(context.Background(), []string{}, io.Discard, io.Discard, pt)
	assert.Equal(t, exitUsage, code)

	code = run(context.Background(), []string{"-d", "a", "-form", "b=c", "http://a/"}, io.Discard, io.Discard, pt)
	assert.Equal(t, exitUsage, code)

	code = run(context.Background(), []string{"-h"}, io.Discard, io.Discard, pt)
	assert.Equal(t, exitOK, code)
}

func TestFallbackLookuper(t *testing.T) {
	first := map[string][]netip.Addr{"a.test": {netip.MustParseAddr("10.0.0.1")}}
	second := map[string][]netip.Addr{"b.test": {netip.MustParseAddr("10.0.0.2")}}

	l := fallbackLookuper{first: domain.NewMapLookuper(first), second: domain.NewMapLookuper(second)}

	addrs, err := l.LookupIP(context.Background(), "a.test")
	require.NoError(t, err)
	assert.Equal(t, first["a.test"], addrs)

	addrs, err = l.LookupIP(context.Background(), "b.test")
	require.NoError(t, err)
	assert.Equal(t, second["b.test"], addrs)
}
