package portal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CampusPortal/internal/client/session"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// fakeSession is a SessionSource whose state is set by the test.
type fakeSession struct {
	mu        sync.Mutex
	st        session.State
	listeners []func(session.State)
}

func (f *fakeSession) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeSession) OnChange(fn func(session.State)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeSession) set(st session.State) {
	f.mu.Lock()
	f.st = st
	fns := append([]func(session.State){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

type fakeCounter struct {
	n     atomic.Int64
	calls atomic.Int32
	err   error
}

func (f *fakeCounter) UnreadCount(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return int(f.n.Load()), nil
}

func studentState() session.State {
	return session.State{Initialized: true, User: &models.User{ID: "s1", Role: models.RoleStudent}}
}

func TestUnreadPoller_PollsWhileStudentLoggedIn(t *testing.T) {
	sess := &fakeSession{st: studentState()}
	counter := &fakeCounter{}
	counter.n.Store(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := StartUnreadPoller(ctx, sess, counter, WithInterval(10*time.Millisecond))

	require.Eventually(t, func() bool { return p.Count() == 4 }, time.Second, 5*time.Millisecond)

	counter.n.Store(9)
	require.Eventually(t, func() bool { return p.Count() == 9 }, time.Second, 5*time.Millisecond)
}

func TestUnreadPoller_SkipsAnonymousAndOtherRoles(t *testing.T) {
	for _, st := range []session.State{
		{},
		{Initialized: true},
		{Initialized: true, User: &models.User{Role: models.RoleHead}},
	} {
		sess := &fakeSession{st: st}
		counter := &fakeCounter{}

		ctx, cancel := context.WithCancel(context.Background())
		StartUnreadPoller(ctx, sess, counter, WithInterval(5*time.Millisecond))
		time.Sleep(30 * time.Millisecond)
		cancel()

		assert.Zero(t, counter.calls.Load(), "state %+v", st)
	}
}

func TestUnreadPoller_ResetsOnLogout(t *testing.T) {
	sess := &fakeSession{st: studentState()}
	counter := &fakeCounter{}
	counter.n.Store(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := StartUnreadPoller(ctx, sess, counter, WithInterval(time.Hour))
	require.Eventually(t, func() bool { return p.Count() == 2 }, time.Second, 5*time.Millisecond)

	sess.set(session.State{Initialized: true})
	assert.Equal(t, 0, p.Count())
}

func TestUnreadPoller_LoginTriggersImmediatePoll(t *testing.T) {
	sess := &fakeSession{st: session.State{Initialized: true}}
	counter := &fakeCounter{}
	counter.n.Store(6)

	updates := make(chan int, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := StartUnreadPoller(ctx, sess, counter, WithInterval(time.Hour), WithOnUpdate(func(n int) { updates <- n }))

	sess.set(studentState())

	select {
	case n := <-updates:
		assert.Equal(t, 6, n)
	case <-time.After(time.Second):
		t.Fatal("no poll after login")
	}
	assert.Equal(t, 6, p.Count())
}

func TestUnreadPoller_ErrorKeepsPreviousCount(t *testing.T) {
	sess := &fakeSession{st: studentState()}
	counter := &fakeCounter{}
	counter.n.Store(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := StartUnreadPoller(ctx, sess, counter, WithInterval(time.Hour))
	require.Eventually(t, func() bool { return p.Count() == 3 }, time.Second, 5*time.Millisecond)

	counter.err = errors.New("boom")
	before := counter.calls.Load()
	p.Refresh()
	require.Eventually(t, func() bool { return counter.calls.Load() > before }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, p.Count())
}

func TestUnreadPoller_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := StartUnreadPoller(ctx, &fakeSession{}, &fakeCounter{})
	cancel()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
