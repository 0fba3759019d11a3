// Package probe sends a single POST to an echo endpoint and reports what
// came back.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

const (
	DefaultURL         = "http://127.0.0.1:8080/echo_input_data"
	DefaultBody        = "Hello, World!"
	DefaultContentType = "text/plain"
)

// ErrAlreadySent is returned when a Probe is asked to send a second request.
var ErrAlreadySent = errors.New("probe already sent its request")

type State int

const (
	NotSent State = iota
	Sent
)

func (s State) String() string {
	switch s {
	case NotSent:
		return "not_sent"
	case Sent:
		return "sent"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is the outbound request. It is not modified once built.
type Request struct {
	URL     string
	Body    string
	Headers map[string]string
}

// DefaultRequest returns the fixed probe request.
func DefaultRequest() *Request {
	return &Request{
		URL:  DefaultURL,
		Body: DefaultBody,
		Headers: map[string]string{
			"Content-Type": DefaultContentType,
		},
	}
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

type Probe struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New returns a Probe using client, or http.DefaultClient when client is nil.
// The client's timeout is left as it is.
func New(client *http.Client, logger *slog.Logger) *Probe {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Probe{
		client: client,
		logger: logger.With("component", "probe"),
		state:  NotSent,
	}
}

func (p *Probe) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Send performs the one POST this probe is allowed. The response body is read
// in full before returning; a failure while reading it counts as a transport
// failure.
func (p *Probe) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	p.mu.Lock()
	if p.state == Sent {
		p.mu.Unlock()
		return nil, ErrAlreadySent
	}
	p.state = Sent
	p.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader([]byte(req.Body)))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	p.logger.Debug("sending request", "url", req.URL, "bytes", len(req.Body))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Debug("request failed", "url", req.URL, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	p.logger.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    wireHeaders(resp),
		Body:       body,
	}, nil
}

// wireHeaders returns the header set as the server sent it. net/http moves
// Transfer-Encoding into resp.TransferEncoding and drops Content-Encoding when
// it transparently decompresses a gzip body.
func wireHeaders(resp *http.Response) http.Header {
	h := resp.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if len(resp.TransferEncoding) > 0 && h.Get("Transfer-Encoding") == "" {
		h["Transfer-Encoding"] = append([]string(nil), resp.TransferEncoding...)
	}
	if resp.Uncompressed && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", "gzip")
	}
	return h
}
