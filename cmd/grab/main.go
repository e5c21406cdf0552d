// Command grab sends a single HTTP/1.1 request and prints the response.
//
//	grab [flags] URL
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"

	"grabber/application/http"
	"grabber/application/http/actor/client"
	"grabber/application/util/domain"
	"grabber/transport"
	"grabber/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitStatus // -fail and the status is not 2xx.
)

type config struct {
	method         string
	headers        http.Headers
	body           bodyFlags
	resolve        map[string][]netip.Addr
	randomBoundary bool
	strict         bool
	insecure       bool
	include        bool
	fail           bool
	verbose        bool
	url            string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run executes the command. dialer is used instead of the network when not nil.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, dialer transport.ConnDialer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if dialer == nil {
		dialer = newDialer(cfg)
	}

	opts := client.DefaultOptions
	opts.Receive.StrictResponse = cfg.strict
	if cfg.randomBoundary {
		opts.Send.Encode.Boundary = http.RandomBoundary()
	}

	body, err := cfg.body.body()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	c := client.New(dialer, logger, clock.New(), opts)
	res, err := c.Grab(ctx, cfg.url, &http.RequestInit{
		Method:  cfg.method,
		Headers: cfg.headers,
		Body:    body,
	})
	if err != nil {
		logger.Error("failed to grab", "url", cfg.url, "error", err)
		return exitError
	}

	if err := printResponse(stdout, res, cfg.include); err != nil {
		logger.Error("failed to print response", "error", err)
		return exitError
	}

	if cfg.fail {
		if err := res.Err(); err != nil {
			logger.Warn("unsuccessful response", "error", err)
			return exitStatus
		}
	}

	return exitOK
}

func parseFlags(args []string, output io.Writer) (*config, error) {
	cfg := &config{resolve: make(map[string][]netip.Addr)}

	fs := flag.NewFlagSet("grab", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: grab [flags] URL")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.method, "X", "", "request method (default GET)")
	fs.Var(headerFlag{&cfg.headers}, "H", "request header 'Name: value' (repeatable)")
	fs.StringVar(&cfg.body.data, "d", "", "text body")
	fs.StringVar(&cfg.body.dataFile, "data-file", "", "send the file as is, '-' for standard input")
	fs.Var(formFlag{&cfg.body.form}, "form", "urlencoded form field 'key=value' (repeatable)")
	fs.Var(partFlag{parts: &cfg.body.parts, readFile: os.ReadFile}, "F", "multipart field 'name=value' or 'name=@path' (repeatable)")
	fs.Var(resolveFlag{cfg.resolve}, "resolve", "resolve host to address 'host=addr' (repeatable)")
	fs.BoolVar(&cfg.randomBoundary, "random-boundary", false, "use a random multipart boundary")
	fs.BoolVar(&cfg.strict, "strict", false, "fail on malformed responses")
	fs.BoolVar(&cfg.insecure, "k", false, "skip TLS certificate verification")
	fs.BoolVar(&cfg.include, "i", false, "print status line and headers")
	fs.BoolVar(&cfg.fail, "fail", false, "exit with status 3 on non-2xx responses")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one URL is required")
	}
	cfg.url = fs.Arg(0)

	return cfg, nil
}

func newDialer(cfg *config) transport.ConnDialer {
	opts := tcp.DefaultOptions
	if len(cfg.resolve) > 0 {
		opts.Lookuper = fallbackLookuper{
			first:  domain.NewMapLookuper(cfg.resolve),
			second: domain.NewResolverLookuper(nil, ""),
		}
	}
	if cfg.insecure {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return tcp.NewDialer(opts)
}

// fallbackLookuper asks second for domains first doesn't know.
type fallbackLookuper struct {
	first, second domain.Lookuper
}

func (l fallbackLookuper) LookupIP(ctx context.Context, name string) ([]netip.Addr, error) {
	addrs, err := l.first.LookupIP(ctx, name)
	if errors.Is(err, domain.ErrDomainNotFound) {
		return l.second.LookupIP(ctx, name)
	}
	return addrs, err
}

func printResponse(w io.Writer, res *http.Response, include bool) error {
	if include {
		if _, err := fmt.Fprintf(w, "%s %d %s\n", res.Version, res.StatusCode, res.StatusText); err != nil {
			return err
		}
		for _, f := range res.Headers {
			if _, err := fmt.Fprintln(w, f.Text()); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	text, err := res.Text()
	if err != nil {
		// Print as is. The charset is only a hint.
		text = res.Body
	}

	_, err = io.WriteString(w, text)
	return err
}
