package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/genera/compass/internal/model"
)

// Submission is one completed questionnaire as read from a document, a
// form or a session
type Submission struct {
	SessionID string            `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	Catalog   string            `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Profile   model.Profile     `yaml:"profile" json:"profile"`
	Responses model.ResponseSet `yaml:"responses" json:"responses"`
}

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

const maxFetchAttempts = 3

// Loader reads submission documents from files, stdin or http(s) URLs
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	stdin      io.Reader
}

// NewLoader creates a loader; remote documents are bounded by timeout and maxBytes
func NewLoader(timeout time.Duration, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Loader{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		stdin:    os.Stdin,
	}
}

// Load reads and decodes the submission at ref ("-" is stdin)
func (l *Loader) Load(ctx context.Context, ref string) (*Submission, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case ref == "-":
		data, err = io.ReadAll(io.LimitReader(l.stdin, l.maxBytes))
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = l.fetchWithRetry(ctx, ref)
	default:
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}

	return DecodeSubmission(data)
}

// DecodeSubmission parses a YAML or JSON submission document
func DecodeSubmission(data []byte) (*Submission, error) {
	var sub Submission
	if err := yaml.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("%w: decode submission: %v", model.ErrValidation, err)
	}
	if sub.Responses == nil {
		sub.Responses = model.ResponseSet{}
	}
	return &sub, nil
}

// fetchWithRetry retries 429 and 5xx responses with a growing pause
func (l *Loader) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		body, retryable, err := l.fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
		if attempt < maxFetchAttempts {
			fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json;q=0.9, */*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}
