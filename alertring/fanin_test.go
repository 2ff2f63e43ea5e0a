package alertring

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/subject"
	"github.com/sentrywall/sentrywall/wire"
)

// chanSource is a CPUSource backed by a channel, standing in for one
// simulated CPU's ring in tests.
type chanSource struct {
	ch     chan []byte
	mu     sync.Mutex
	closed bool
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan []byte, 8)}
}

func (s *chanSource) push(b []byte) {
	s.ch <- b
}

func (s *chanSource) Read() ([]byte, error) {
	b, ok := <-s.ch
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (s *chanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func TestFaninMergesMultipleCPUs(t *testing.T) {
	cpu0 := newChanSource()
	cpu1 := newChanSource()

	mkRaw := func(pid uint32, inode uint64) []byte {
		buf, err := wire.Write(wire.ExecAlert{Pid: pid, ImageInode: inode})
		if err != nil {
			t.Fatal(err)
		}
		return buf
	}
	cpu0.push(mkRaw(1, 10))
	cpu1.push(mkRaw(2, 20))

	f := New(hook.Exec, []CPUSource{cpu0, cpu1}, DecodeExec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := f.Start(ctx)

	seen := map[uint32]bool{}
	for i := 0; i < 2; i++ {
		select {
		case a := <-out:
			if a.Hook != hook.Exec {
				t.Errorf("Hook = %v, want Exec", a.Hook)
			}
			seen[a.Pid] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for alert")
		}
	}
	if !seen[1] || !seen[2] {
		t.Errorf("expected alerts from both pids, got %v", seen)
	}
}

func TestFaninClosesOnContextCancel(t *testing.T) {
	cpu0 := newChanSource()
	f := New(hook.Mount, []CPUSource{cpu0}, DecodeMount, nil)
	ctx, cancel := context.WithCancel(context.Background())
	out := f.Start(ctx)

	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed with no pending alerts")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fan-in channel to close")
	}
}

func TestFaninResolvesSubject(t *testing.T) {
	r := subject.New()
	r.Remember(10, "/usr/bin/evil")

	cpu0 := newChanSource()
	buf, _ := wire.Write(wire.FileOpenAlert{Pid: 1, ImageInode: 10, TargetInode: 20})
	cpu0.push(buf)

	f := New(hook.FileOpen, []CPUSource{cpu0}, DecodeFileOpen, r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := f.Start(ctx)

	select {
	case a := <-out:
		if a.Subject != "/usr/bin/evil" {
			t.Errorf("Subject = %q, want /usr/bin/evil", a.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for alert")
	}
}
