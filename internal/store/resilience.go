package store

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"
)

// RetryPolicy bounds retries against the hosted store. The store is a
// shared household backend, so transient 5xx and 429 responses are retried
// with jittered exponential backoff.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
}

// DefaultRetryPolicy returns the policy used by the REST gateway.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Jitter:         0.2,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(2, float64(attempt-1))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ErrCircuitOpen is returned while the breaker is refusing requests.
var ErrCircuitOpen = errors.New("store circuit breaker is open")

// breaker is a minimal circuit breaker: it opens after consecutive
// failures and probes again after a cooldown.
type breaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{threshold: threshold, cooldown: cooldown}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return nil
	}
	if time.Since(b.openedAt) > b.cooldown {
		// Half-open: let one probe through.
		b.failures = b.threshold - 1
		return nil
	}
	return ErrCircuitOpen
}

func (b *breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures == b.threshold {
		b.openedAt = time.Now()
	}
}

// resilientDo issues req through client with retry and circuit breaking.
// The request body must be re-readable (GetBody set), which is true for
// the bytes.Reader bodies the REST gateway builds.
func resilientDo(client *http.Client, req *http.Request, policy RetryPolicy, brk *breaker) (*http.Response, error) {
	if err := brk.allow(); err != nil {
		return nil, err
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(policy.backoff(attempt)):
			}
			req = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}
		}

		resp, lastErr = client.Do(req)
		if lastErr != nil {
			if retryableNetErr(lastErr) {
				continue
			}
			brk.record(false)
			return nil, lastErr
		}
		if retryableStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = &statusError{code: resp.StatusCode}
			continue
		}
		brk.record(true)
		return resp, nil
	}

	brk.record(false)
	return nil, lastErr
}

func retryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "store responded " + http.StatusText(e.code)
}
