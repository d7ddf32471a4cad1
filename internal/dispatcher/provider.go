package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/metrics"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"golang.org/x/time/rate"
)

// Payload is the JSON body posted to a provider endpoint.
type Payload struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

// NewPayload builds the provider body for a stored message.
func NewPayload(m model.Message) Payload {
	att := []string(m.Attachments)
	if att == nil {
		att = []string{}
	}
	return Payload{
		From:        m.From,
		To:          m.To,
		Body:        m.Body,
		Attachments: att,
		Timestamp:   m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// Client performs exactly one delivery attempt. Failures are *ProviderError.
type Client interface {
	Name() string
	Channel() model.Channel
	Send(ctx context.Context, p Payload) (string, error)
}

type HTTPClientOpts struct {
	Name          string
	Endpoint      string
	Timeout       time.Duration
	RPS           float64 // client-side throttle; 0 disables
	Burst         int
	FailThreshold int // breaker; 0 disables
	OpenFor       time.Duration
	HTTPClient    *http.Client
}

// HTTPClient posts payloads to a provider endpoint and expects {"id": "..."} back.
type HTTPClient struct {
	name     string
	channel  model.Channel
	endpoint string
	client   *http.Client
	br       *Breaker
	limiter  *rate.Limiter
}

func NewSMSClient(o HTTPClientOpts) *HTTPClient {
	if o.Name == "" {
		o.Name = "sms"
	}
	return newHTTPClient(model.ChannelSMS, o)
}

func NewEmailClient(o HTTPClientOpts) *HTTPClient {
	if o.Name == "" {
		o.Name = "email"
	}
	return newHTTPClient(model.ChannelEmail, o)
}

func newHTTPClient(ch model.Channel, o HTTPClientOpts) *HTTPClient {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}

	c := &HTTPClient{
		name:     o.Name,
		channel:  ch,
		endpoint: o.Endpoint,
		client:   hc,
		br:       NewBreaker(o.FailThreshold, o.OpenFor),
	}
	if o.RPS > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	return c
}

func (c *HTTPClient) Name() string           { return c.name }
func (c *HTTPClient) Channel() model.Channel { return c.channel }

func (c *HTTPClient) Send(ctx context.Context, p Payload) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: err}
		}
	}

	if !c.br.TryAcquire() {
		metrics.ProviderAttempts.WithLabelValues(c.name, "circuit_open").Inc()
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: ErrCircuitOpen}
	}

	start := time.Now()
	id, err := c.post(ctx, p)
	metrics.DeliveryDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	c.record(err)
	return id, err
}

// record feeds the breaker and attempt counter. Only provider-side faults trip the breaker.
func (c *HTTPClient) record(err error) {
	if err == nil {
		c.br.OnSuccess()
		metrics.ProviderAttempts.WithLabelValues(c.name, "ok").Inc()
		return
	}

	kind := KindUnexpected
	var pe *ProviderError
	if errors.As(err, &pe) {
		kind = pe.Kind
	}
	if kind == KindServerError || kind == KindUnexpected {
		c.br.OnFailure()
	} else {
		c.br.OnSuccess()
	}
	metrics.ProviderAttempts.WithLabelValues(c.name, string(kind)).Inc()
}

func (c *HTTPClient) post(ctx context.Context, p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: err}
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return "", &ProviderError{Provider: c.name, StatusCode: res.StatusCode, Kind: Classify(res.StatusCode)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: err}
	}
	if out.ID == "" {
		return "", &ProviderError{Provider: c.name, Kind: KindUnexpected, Err: errMissingID}
	}

	return out.ID, nil
}
