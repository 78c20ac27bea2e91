// Package docsource loads the shared document and exports it through the
// markup-to-PDF conversion service.
package docsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxBody = 32 << 20

var ErrUpstream = errors.New("docsource: upstream error")

// Source fetches and converts documents.
type Source struct {
	client *http.Client
}

// New returns a Source. A nil client gets a 30 second timeout.
func New(client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{client: client}
}

// Load reads markup from an http(s) URL or a local file path.
func (s *Source) Load(ctx context.Context, src string) (string, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	data, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", src, err)
	}
	return string(data), nil
}

// Convert posts markup to endpoint and returns the rendered document.
func (s *Source) Convert(ctx context.Context, endpoint, markup string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/html")
	data, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	return data, nil
}

func (s *Source) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBody)); err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}
	return buf.Bytes(), nil
}
