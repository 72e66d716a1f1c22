package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketdata-service/internal/application"
	redisstore "marketdata-service/internal/infrastructure/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notification is one decoded stream entry.
type Notification struct {
	Stream  string
	ID      string
	Payload map[string]any
}

type Handler func(ctx context.Context, n Notification) error

// LogHandler writes every notification as a structured log line.
func LogHandler(log *zap.Logger) Handler {
	return func(_ context.Context, n Notification) error {
		log.Info("notification.received",
			zap.String("stream", n.Stream),
			zap.String("id", n.ID),
			zap.Any("payload", n.Payload),
		)
		return nil
	}
}

var _ application.Worker = (*StreamWorker)(nil)

// StreamWorker tails the notification streams with non-blocking XREAD calls
// on a fixed poll interval. The cursor per stream lives in memory only.
type StreamWorker struct {
	Client  *redis.Client
	Streams []string
	Handle  Handler

	PollEvery  time.Duration
	BatchLimit int
	StartID    string
	Log        *zap.Logger
	// OnPoll, when set, receives the read error of every tick (nil on success).
	OnPoll func(err error)

	cursor map[string]string
}

func (w *StreamWorker) init() {
	if w.Log == nil {
		w.Log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = 500 * time.Millisecond
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = 100
	}
	if w.StartID == "" {
		w.StartID = "0"
	}
	if w.Handle == nil {
		w.Handle = LogHandler(w.Log)
	}
	if w.cursor == nil {
		w.cursor = make(map[string]string, len(w.Streams))
		for _, s := range w.Streams {
			w.cursor[s] = w.StartID
		}
	}
}

func (w *StreamWorker) Start(ctx context.Context) {
	w.init()
	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	w.Log.Info("stream_worker.started", zap.Strings("streams", w.Streams), zap.Duration("poll_every", w.PollEvery))
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("stream_worker.stopped")
			return
		case <-t.C:
			_, err := w.Poll(ctx)
			if ctx.Err() != nil {
				continue
			}
			if err != nil {
				w.Log.Warn("stream_worker.read_failed", zap.Error(err))
			}
			if w.OnPoll != nil {
				w.OnPoll(err)
			}
		}
	}
}

// Poll reads at most BatchLimit entries per stream past the current cursor
// and hands them to the handler. It returns how many entries were handled.
func (w *StreamWorker) Poll(ctx context.Context) (int, error) {
	w.init()
	if len(w.Streams) == 0 {
		return 0, nil
	}
	args := make([]string, 0, 2*len(w.Streams))
	args = append(args, w.Streams...)
	for _, s := range w.Streams {
		args = append(args, w.cursor[s])
	}
	res, err := w.Client.XRead(ctx, &redis.XReadArgs{
		Streams: args,
		Count:   int64(w.BatchLimit),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("worker: xread: %w", err)
	}

	handled := 0
	for _, st := range res {
		for _, msg := range st.Messages {
			w.cursor[st.Stream] = msg.ID
			n, err := decode(st.Stream, msg)
			if err != nil {
				w.Log.Warn("stream_worker.decode_failed", zap.String("stream", st.Stream), zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			if err := w.Handle(ctx, n); err != nil {
				w.Log.Warn("stream_worker.handle_failed", zap.String("stream", st.Stream), zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			handled++
		}
	}
	return handled, nil
}

func decode(stream string, msg redis.XMessage) (Notification, error) {
	raw, ok := msg.Values[redisstore.DataField].(string)
	if !ok {
		return Notification{}, fmt.Errorf("missing %q field", redisstore.DataField)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Notification{}, err
	}
	return Notification{Stream: stream, ID: msg.ID, Payload: payload}, nil
}
