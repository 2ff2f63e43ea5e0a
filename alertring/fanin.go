package alertring

import (
	"context"
	"sync"

	"github.com/sentrywall/sentrywall/hook"
	"github.com/sentrywall/sentrywall/subject"
)

// DefaultBufSize is the fan-in channel's default capacity (spec.md
// §4.5 "bounded capacity (e.g., 32)").
const DefaultBufSize = 32

// CPUSource yields raw ring records for one CPU's sub-buffer. Read
// blocks until a record is available, the source is closed, or the
// underlying transport fails.
//
// In production this wraps one *perf.Reader per hook ring — a
// perf.Reader already fans its per-CPU sub-buffers in internally, so a
// single CPUSource commonly stands in for "all CPUs" there (see
// SPEC_FULL.md §8). Tests and the software engine instead supply one
// CPUSource per simulated CPU, exercising the literal per-CPU fan-in
// the spec describes.
type CPUSource interface {
	Read() (raw []byte, err error)
	Close() error
}

// Fanin drains a hook's CPUSources into one unified channel of typed
// Alerts, one goroutine per source, matching spec.md §4.5's "one
// cooperative task per CPU".
type Fanin struct {
	Hook     hook.Kind
	Sources  []CPUSource
	Decode   DecodeFunc
	Resolver *subject.Resolver
	BufSize  int
}

// New returns a Fanin for hk's ring, decoding records with decode and,
// if resolver is non-nil, filling in Alert.Subject/TargetSubject.
func New(hk hook.Kind, sources []CPUSource, decode DecodeFunc, resolver *subject.Resolver) *Fanin {
	return &Fanin{Hook: hk, Sources: sources, Decode: decode, Resolver: resolver, BufSize: DefaultBufSize}
}

// Start launches one goroutine per CPUSource and returns the unified
// receive channel. Cancelling ctx closes every source, which unblocks
// their Read calls; each per-CPU task then exits and the returned
// channel is closed once all of them have (spec.md §4.5
// "Cancellation").
//
// Backpressure is cooperative: if the channel fills, producers block
// on the send until the consumer drains it or ctx is cancelled (spec.md
// §4.5 "Backpressure").
func (f *Fanin) Start(ctx context.Context) <-chan Alert {
	bufSize := f.BufSize
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	out := make(chan Alert, bufSize)

	var wg sync.WaitGroup
	for _, src := range f.Sources {
		wg.Add(1)
		go func(s CPUSource) {
			defer wg.Done()
			for {
				raw, err := s.Read()
				if err != nil {
					return
				}
				a, err := f.Decode(raw)
				if err != nil {
					continue
				}
				a.Hook = f.Hook
				if f.Resolver != nil {
					a.Subject = f.Resolver.ResolveInode(a.ImageInode)
					if a.TargetInode != 0 {
						a.TargetSubject = f.Resolver.ResolveInode(a.TargetInode)
					}
				}
				select {
				case out <- a:
				case <-ctx.Done():
					return
				}
			}
		}(src)
	}

	go func() {
		<-ctx.Done()
		for _, s := range f.Sources {
			s.Close()
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
