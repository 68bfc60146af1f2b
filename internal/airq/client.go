package airq

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/airqmon/internal/domain"
)

// FetchKind classifies a failed fetch. All kinds are transient to the
// caller; retry policy lives in the poller (the next tick is the retry).
type FetchKind string

const (
	FetchTimeout           FetchKind = "timeout"
	FetchConnectionRefused FetchKind = "connection_refused"
	FetchHTTPStatus        FetchKind = "http_status"
	FetchMalformed         FetchKind = "malformed"
)

type FetchError struct {
	Kind   FetchKind
	Status int // set for FetchHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch: http status %d", e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
	}
	return "fetch: " + string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

const maxBodyBytes = 1 << 20

// Client fetches the encrypted data document from one sensor endpoint.
// One request per call, hard timeout, no retries.
type Client struct {
	HTTP   *http.Client
	Scheme string
}

// NewClient builds a client with a hard per-request timeout. Air-Q devices
// ship self-signed certificates, so insecure optionally skips verification.
func NewClient(scheme string, timeout time.Duration, insecure bool) *Client {
	if scheme == "" {
		scheme = "https"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		HTTP:   &http.Client{Timeout: timeout, Transport: transport},
		Scheme: scheme,
	}
}

type envelope struct {
	Content string `json:"content"`
}

// Fetch GETs {path}/data/ from the device and returns the still-encrypted
// payload plus transport metadata.
func (c *Client) Fetch(ctx context.Context, ep domain.SensorEndpoint) (*domain.RawResponse, error) {
	p := strings.TrimSuffix(string(ep.Path), "/")
	url := fmt.Sprintf("%s://%s%s/data/", c.Scheme, ep.Host, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformed, Err: err}
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: FetchHTTPStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{Kind: FetchMalformed, Err: err}
	}
	if env.Content == "" {
		return nil, &FetchError{Kind: FetchMalformed, Err: errors.New("envelope has no content field")}
	}

	return &domain.RawResponse{
		Content:   env.Content,
		Status:    resp.StatusCode,
		LatencyMS: latency,
		FetchedAt: start.UTC(),
	}, nil
}

// classifyTransport maps a transport error onto the fetch taxonomy.
// Refused, reset and DNS failures all mean the device is unreachable.
func classifyTransport(err error) *FetchError {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}
	return &FetchError{Kind: FetchConnectionRefused, Err: err}
}
