package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type attempt struct {
	id  string
	err error
}

// scriptedClient replays attempts in order and repeats the last one.
type scriptedClient struct {
	mu       sync.Mutex
	name     string
	channel  model.Channel
	script   []attempt
	calls    int
	payloads []Payload
}

func (c *scriptedClient) Name() string           { return c.name }
func (c *scriptedClient) Channel() model.Channel { return c.channel }

func (c *scriptedClient) Send(_ context.Context, p Payload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	c.calls++
	c.payloads = append(c.payloads, p)
	return c.script[i].id, c.script[i].err
}

func statusErr(code int) error {
	return &ProviderError{Provider: "stub", StatusCode: code, Kind: Classify(code)}
}

type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func TestSendWithRetrySucceedsAfterRateLimits(t *testing.T) {
	for n := 0; n <= 3; n++ {
		script := make([]attempt, 0, n+1)
		for i := 0; i < n; i++ {
			script = append(script, attempt{err: statusErr(http.StatusTooManyRequests)})
		}
		script = append(script, attempt{id: "sms-abc"})

		c := &scriptedClient{name: "stub", script: script}
		s := &recordingSleeper{}
		r := NewRetryPolicy(3, 2*time.Second, zaptest.NewLogger(t), WithSleeper(s.sleep))

		id, ok := r.SendWithRetry(context.Background(), c, Payload{})
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, "sms-abc", id)
		assert.Equal(t, n+1, c.calls)
		assert.Len(t, s.waits, n)
		for _, w := range s.waits {
			assert.Equal(t, 2*time.Second, w)
		}
	}
}

func TestSendWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	c := &scriptedClient{name: "stub", script: []attempt{{err: statusErr(http.StatusTooManyRequests)}}}
	s := &recordingSleeper{}
	r := NewRetryPolicy(2, time.Second, zaptest.NewLogger(t), WithSleeper(s.sleep))

	id, ok := r.SendWithRetry(context.Background(), c, Payload{})
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, 3, c.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, s.waits)
}

func TestSendWithRetryZeroRetries(t *testing.T) {
	c := &scriptedClient{name: "stub", script: []attempt{{err: statusErr(http.StatusTooManyRequests)}}}
	s := &recordingSleeper{}

	_, ok := NewRetryPolicy(0, time.Second, nil, WithSleeper(s.sleep)).SendWithRetry(context.Background(), c, Payload{})
	assert.False(t, ok)
	assert.Equal(t, 1, c.calls)
	assert.Empty(t, s.waits)
}

func TestSendWithRetryDoesNotRetryOtherFailures(t *testing.T) {
	cases := map[string]error{
		"400":        statusErr(http.StatusBadRequest),
		"401":        statusErr(http.StatusUnauthorized),
		"500":        statusErr(http.StatusInternalServerError),
		"502":        statusErr(http.StatusBadGateway),
		"unexpected": &ProviderError{Provider: "stub", Kind: KindUnexpected, Err: errors.New("connection reset")},
		"plain":      errors.New("not a provider error"),
	}

	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			c := &scriptedClient{name: "stub", script: []attempt{{err: err}, {id: "never"}}}
			s := &recordingSleeper{}
			r := NewRetryPolicy(3, 2*time.Second, zaptest.NewLogger(t), WithSleeper(s.sleep))

			id, ok := r.SendWithRetry(context.Background(), c, Payload{})
			assert.False(t, ok)
			assert.Empty(t, id)
			assert.Equal(t, 1, c.calls)
			assert.Empty(t, s.waits)
		})
	}
}

func TestSendWithRetryStopsWhenWaitAborted(t *testing.T) {
	c := &scriptedClient{name: "stub", script: []attempt{{err: statusErr(http.StatusTooManyRequests)}, {id: "late"}}}
	s := &recordingSleeper{err: context.Canceled}

	_, ok := NewRetryPolicy(3, time.Second, nil, WithSleeper(s.sleep)).SendWithRetry(context.Background(), c, Payload{})
	assert.False(t, ok)
	assert.Equal(t, 1, c.calls)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
