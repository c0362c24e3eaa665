package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Log writes every notification to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("message", n.Message),
	}
	if n.ProductID != 0 {
		fields = append(fields, zap.Int64("product_id", n.ProductID))
	}

	if n.Level == domain.LevelError {
		l.logger.Warn("notification", fields...)
		return
	}
	l.logger.Info("notification", fields...)
}

// Recorder keeps the notifications it receives.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (domain.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return domain.Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}

type recorderKey struct{}

// WithRecorder attaches r to ctx so a Scoped notifier can deliver to it.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

func RecorderFrom(ctx context.Context) (*Recorder, bool) {
	r, ok := ctx.Value(recorderKey{}).(*Recorder)
	return r, ok
}

// Scoped delivers to the Recorder carried by the context, if there is one.
type Scoped struct{}

func (Scoped) Notify(ctx context.Context, n domain.Notification) {
	if r, ok := RecorderFrom(ctx); ok {
		r.Notify(ctx, n)
	}
}

// Fanout delivers to every notifier in order.
type Fanout []port.Notifier

func (f Fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range f {
		notifier.Notify(ctx, n)
	}
}
