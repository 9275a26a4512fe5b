// Package loader retrieves the locations document from a file or an HTTP URL
// and turns it into a sorted location set.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"location_viewer/core-go/internal/location"
)

const (
	DefaultSource   = "data/locations.json"
	DefaultMaxBytes = 16 << 20
)

type Options struct {
	// Source is an http(s) URL, a file:// URL or a plain file path.
	Source   string
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

type Loader struct {
	source   string
	remote   bool
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

func New(opts Options) (*Loader, error) {
	src := strings.TrimSpace(opts.Source)
	if src == "" {
		src = DefaultSource
	}

	remote := false
	if u, err := url.Parse(src); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			remote = true
		case "file":
			src = u.Path
		case "":
		default:
			if len(u.Scheme) > 1 {
				return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
			}
			// Single-letter schemes are Windows drive letters.
		}
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	return &Loader{
		source:   src,
		remote:   remote,
		client:   client,
		timeout:  timeout,
		maxBytes: maxBytes,
	}, nil
}

func (l *Loader) Source() string { return l.source }

// Load fetches and decodes the document. A cancelled ctx yields ctx.Err().
func (l *Loader) Load(ctx context.Context) (location.Set, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var (
		body []byte
		err  error
	)
	if l.remote {
		body, err = l.fetch(ctx)
	} else {
		body, err = l.readFile(ctx)
	}
	if err != nil {
		return nil, err
	}

	return location.Decode(body)
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, &location.TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		return nil, &location.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &location.TransportError{Status: resp.StatusCode}
	}

	return l.readAll(ctx, resp.Body)
}

func (l *Loader) readFile(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.source)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &location.TransportError{Status: http.StatusNotFound, Err: err}
		case errors.Is(err, fs.ErrPermission):
			return nil, &location.TransportError{Status: http.StatusForbidden, Err: err}
		default:
			return nil, &location.TransportError{Err: err}
		}
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.IsDir() {
		return nil, &location.TransportError{Status: http.StatusNotFound, Err: fmt.Errorf("%s is a directory", l.source)}
	}

	return l.readAll(ctx, f)
}

func (l *Loader) readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		return nil, &location.TransportError{Err: err}
	}
	if int64(len(body)) > l.maxBytes {
		return nil, &location.TransportError{Err: fmt.Errorf("document exceeds %d bytes", l.maxBytes)}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return body, nil
}
