package alertring

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/perf"
)

// PerfSource adapts a *perf.Reader over a BPF_MAP_TYPE_PERF_EVENT_ARRAY
// ring map to CPUSource. This is the production transport named in
// spec.md §4.5.
type PerfSource struct {
	reader *perf.Reader
}

// OpenPerfSource opens the per-CPU perf event ring backing m. perCPUBuf
// is the per-CPU ring size in bytes; 0 lets the kernel pick a default.
func OpenPerfSource(m *ebpf.Map, perCPUBuf int) (*PerfSource, error) {
	r, err := perf.NewReader(m, perCPUBuf)
	if err != nil {
		return nil, fmt.Errorf("alertring: open perf ring: %w", err)
	}
	return &PerfSource{reader: r}, nil
}

func (p *PerfSource) Read() ([]byte, error) {
	for {
		rec, err := p.reader.Read()
		if err != nil {
			return nil, err
		}
		if rec.LostSamples > 0 {
			// A burst outran its per-CPU sub-buffer; the spec treats
			// this as an ordinary runtime read condition, not a fatal
			// one (spec.md §7 "runtime read errors cause the per-CPU
			// task to exit" only applies to the ring itself failing).
			continue
		}
		return rec.RawSample, nil
	}
}

func (p *PerfSource) Close() error {
	return p.reader.Close()
}
