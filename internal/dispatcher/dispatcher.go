package dispatcher

import (
	"context"
	"fmt"

	"github.com/jmehdipour/messaging-gateway/internal/model"
)

// Dispatcher picks a client by message type and delivers through the retry policy.
type Dispatcher struct {
	clients map[model.Channel]Client
	retry   *RetryPolicy
}

// NewDispatcher indexes clients by channel; a later client replaces an earlier one.
func NewDispatcher(retry *RetryPolicy, clients ...Client) *Dispatcher {
	m := make(map[model.Channel]Client, len(clients))
	for _, c := range clients {
		if c != nil {
			m[c.Channel()] = c
		}
	}
	return &Dispatcher{clients: m, retry: retry}
}

// ClientFor maps sms and mms to the SMS client and email to the email client.
func (d *Dispatcher) ClientFor(t model.MessageType) (Client, error) {
	c, ok := d.clients[t.Channel()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	return c, nil
}

// Deliver reports the provider id and whether delivery succeeded. The error is
// non-nil only for configuration problems; provider failures surface as ok=false.
func (d *Dispatcher) Deliver(ctx context.Context, t model.MessageType, p Payload) (string, bool, error) {
	c, err := d.ClientFor(t)
	if err != nil {
		return "", false, err
	}

	id, ok := d.retry.SendWithRetry(ctx, c, p)
	return id, ok, nil
}
