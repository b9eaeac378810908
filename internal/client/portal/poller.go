package portal

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/session"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// DefaultPollInterval is how often the unread count is refreshed.
const DefaultPollInterval = time.Minute

// UnreadCounter fetches the unread notification count.
type UnreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// SessionSource is the part of the session store the poller watches.
type SessionSource interface {
	Snapshot() session.State
	OnChange(fn func(session.State)) (remove func())
}

// UnreadPoller keeps the unread notification count of a logged-in student
// fresh. It polls only while such a user is present and resets the count
// when the session ends.
type UnreadPoller struct {
	sess     SessionSource
	counter  UnreadCounter
	interval time.Duration
	log      *zap.Logger
	onUpdate func(int)

	count atomic.Int64
	kick  chan struct{}
	done  chan struct{}
}

// PollerOption customizes an UnreadPoller.
type PollerOption func(*UnreadPoller)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) PollerOption {
	return func(p *UnreadPoller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) PollerOption {
	return func(p *UnreadPoller) {
		if l != nil {
			p.log = l
		}
	}
}

// WithOnUpdate registers a callback run after each successful refresh.
func WithOnUpdate(fn func(int)) PollerOption {
	return func(p *UnreadPoller) { p.onUpdate = fn }
}

// StartUnreadPoller starts polling in a goroutine until ctx is cancelled.
func StartUnreadPoller(ctx context.Context, sess SessionSource, counter UnreadCounter, opts ...PollerOption) *UnreadPoller {
	p := &UnreadPoller{
		sess:     sess,
		counter:  counter,
		interval: DefaultPollInterval,
		log:      zap.NewNop(),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	remove := sess.OnChange(func(st session.State) {
		if eligible(st) {
			p.Refresh()
			return
		}
		p.count.Store(0)
	})

	go func() {
		defer close(p.done)
		defer remove()
		p.run(ctx)
	}()
	p.Refresh()
	return p
}

// Count returns the last known unread count.
func (p *UnreadPoller) Count() int {
	return int(p.count.Load())
}

// Refresh asks for an immediate poll without waiting for the ticker.
func (p *UnreadPoller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Done is closed once the poller has stopped.
func (p *UnreadPoller) Done() <-chan struct{} {
	return p.done
}

func (p *UnreadPoller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		p.poll(ctx)
	}
}

func (p *UnreadPoller) poll(ctx context.Context) {
	if !eligible(p.sess.Snapshot()) {
		return
	}
	n, err := p.counter.UnreadCount(ctx)
	if err != nil {
		// Keep the previous count rather than showing a wrong one.
		p.log.Warn("fetch unread count", zap.Error(err))
		return
	}
	if !eligible(p.sess.Snapshot()) {
		return
	}
	p.count.Store(int64(n))
	p.log.Debug("unread count updated", zap.Int("count", n))
	if p.onUpdate != nil {
		p.onUpdate(n)
	}
}

func eligible(st session.State) bool {
	return st.Initialized && st.User != nil && st.User.Role == models.RoleStudent
}
