package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/kafka"
	"github.com/jmehdipour/messaging-gateway/internal/metrics"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"go.uber.org/zap"
)

// EventSource yields message events and accepts offset commits.
type EventSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// RecordSink stores a batch of reporting rows.
type RecordSink interface {
	InsertBatch(ctx context.Context, rows []model.MessageRecord) error
}

// Archiver:
// - fetches message events from Kafka,
// - flattens them into reporting rows,
// - batch-inserts into ClickHouse and commits offsets only after a successful insert.
type Archiver struct {
	// Dependencies
	Source EventSource
	Sink   RecordSink
	Log    *zap.Logger

	// Behavior
	BatchSize    int           // max buffered events per flush
	BatchWait    time.Duration // max time to wait before flush
	RetryBackoff time.Duration // pause between failed fetches or inserts
	FlushTimeout time.Duration // budget for the final flush on shutdown
}

// NewArchiver builds a worker with sane defaults.
func NewArchiver(src EventSource, sink RecordSink, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		Source:       src,
		Sink:         sink,
		Log:          log,
		BatchSize:    500,
		BatchWait:    time.Second,
		RetryBackoff: 500 * time.Millisecond,
		FlushTimeout: 5 * time.Second,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	if a.Source == nil || a.Sink == nil {
		return errors.New("archiver: source and sink are required")
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 500
	}
	if a.BatchWait <= 0 {
		a.BatchWait = time.Second
	}
	if a.RetryBackoff <= 0 {
		a.RetryBackoff = 500 * time.Millisecond
	}
	if a.FlushTimeout <= 0 {
		a.FlushTimeout = 5 * time.Second
	}

	msgCh := make(chan kafka.Message, a.BatchSize)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := a.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.Log.Warn("kafka fetch failed", zap.Error(err))
				if !sleep(ctx, a.RetryBackoff) {
					return
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.runBatchWriter(ctx, msgCh)
	return nil
}

// decodeEvent accepts the envelope either as a JSON object or as a JSON string
// holding the object (outbox relays differ on this).
func decodeEvent(value []byte) (model.Envelope, error) {
	var env model.Envelope
	raw := bytes.TrimSpace(value)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return env, err
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	if env.Message.ID == "" {
		return env, errors.New("envelope missing message id")
	}
	return env, nil
}

// runBatchWriter does size/time-based flushes. Poison events are committed
// together with the batch they arrived in.
func (a *Archiver) runBatchWriter(ctx context.Context, in <-chan kafka.Message) {
	tick := time.NewTicker(a.BatchWait)
	defer tick.Stop()

	var (
		rows    []model.MessageRecord
		pending []kafka.Message
		skipped int
	)

	reset := func() {
		rows = rows[:0]
		pending = pending[:0]
		skipped = 0
	}

	flush := func(ctx context.Context, retry bool) {
		if len(pending) == 0 {
			return
		}

		for len(rows) > 0 {
			err := a.Sink.InsertBatch(ctx, rows)
			if err == nil {
				break
			}
			metrics.ArchivedEvents.WithLabelValues("failed").Add(float64(len(rows)))
			a.Log.Error("clickhouse batch insert failed", zap.Int("rows", len(rows)), zap.Error(err))
			if !retry || !sleep(ctx, a.RetryBackoff) {
				// offsets stay uncommitted; the events are redelivered after restart
				return
			}
		}

		if err := a.Source.Commit(ctx, pending...); err != nil {
			a.Log.Error("kafka commit failed", zap.Int("messages", len(pending)), zap.Error(err))
		}

		metrics.ArchivedEvents.WithLabelValues("inserted").Add(float64(len(rows)))
		metrics.ArchivedEvents.WithLabelValues("skipped").Add(float64(skipped))
		a.Log.Debug("archiver flushed", zap.Int("rows", len(rows)), zap.Int("skipped", skipped))

		reset()
	}

	final := func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.FlushTimeout)
		defer cancel()
		flush(fctx, false)
	}

	add := func(m kafka.Message) {
		pending = append(pending, m)
		env, err := decodeEvent(m.Value)
		if err != nil {
			skipped++
			a.Log.Warn("skipping bad event", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
			return
		}
		rows = append(rows, model.RecordFromEnvelope(env))
	}

	for {
		select {
		case <-ctx.Done():
			// the fetcher closes in once it sees ctx; keep what it already handed over
			for m := range in {
				add(m)
			}
			final()
			return

		case m, ok := <-in:
			if !ok {
				final()
				return
			}

			add(m)
			if len(pending) >= a.BatchSize {
				flush(ctx, true)
			}

		case <-tick.C:
			flush(ctx, true)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
