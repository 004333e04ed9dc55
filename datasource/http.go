package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"
)

// httpSource is the shared plumbing of the REST based connectors.
type httpSource struct {
	provider string
	baseURL  string
	client   *http.Client
	attempts int
	// delay is the first backoff step; it doubles per retry.
	delay  time.Duration
	header http.Header
}

func newHTTPSource(provider, baseURL string, timeout time.Duration, attempts int) httpSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return httpSource{
		provider: provider,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		attempts: max(attempts, 1),
		delay:    500 * time.Millisecond,
		header:   http.Header{},
	}
}

// statusError is a retryable 429 or 5xx answer.
type statusError struct {
	status int
}

func (e statusError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

// get fetches path and returns the final status and body. Transport errors,
// 429 and 5xx are retried with exponential backoff.
func (s httpSource) get(ctx context.Context, path string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			for k, vs := range s.header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
			resp, err := s.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			status = resp.StatusCode
			if body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err != nil {
				return err
			}
			if status == http.StatusTooManyRequests || status >= 500 {
				return statusError{status: status}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.attempts)),
		retry.Delay(s.delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)

	var se statusError
	if errors.As(err, &se) {
		return status, body, errors.Wrapf(ErrExternalVerificationFailed, "%s: status %d", s.provider, se.status)
	}
	if err != nil {
		log.Printf("%s[ERROR]: %s lookup %s: %v%s", chalk.Red, s.provider, path, err, chalk.Reset)
		return status, body, errors.Wrapf(ErrExternalVerificationFailed, "%s: %v", s.provider, err)
	}
	return status, body, nil
}

// exists maps a lookup to the Verify contract: 2xx found, 404 mismatch.
func (s httpSource) exists(ctx context.Context, path string) (bool, error) {
	status, _, err := s.get(ctx, path)
	if err != nil {
		return false, err
	}
	switch {
	case status >= 200 && status < 300:
		return true, nil
	case status == http.StatusNotFound:
		return false, nil
	default:
		return false, errors.Wrapf(ErrExternalVerificationFailed, "%s: status %d", s.provider, status)
	}
}

func (s httpSource) profile(ctx context.Context, path string) (Profile, error) {
	status, body, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.Wrapf(ErrProfileNotFound, "%s: %s", s.provider, path)
	}
	if status < 200 || status >= 300 {
		return nil, errors.Wrapf(ErrExternalVerificationFailed, "%s: status %d", s.provider, status)
	}
	profile := Profile{}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, errors.Wrapf(ErrExternalVerificationFailed, "%s: decoding profile: %v", s.provider, err)
	}
	return profile, nil
}
