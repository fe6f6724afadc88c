// Package stress runs concurrent updaters and receivers against an update
// channel and checks that what the receivers observe is consistent with the
// latest-wins contract.
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/update"
	"golang.org/x/sync/errgroup"
)

// ErrViolation is reported by Run when a receiver observes a value or version
// that the channel should never have delivered.
var ErrViolation = errors.New("update contract violated")

// A Sample is the value written by updaters. Its payload is derived from the
// writer and sequence number, so a value assembled from parts of different
// writes can be detected.
type Sample struct {
	Writer  int
	Seq     int
	Payload [4]uint64
}

func newSample(writer, seq int) Sample {
	s := Sample{Writer: writer, Seq: seq}
	s.Payload = s.expected()
	return s
}

func (s Sample) expected() (p [4]uint64) {
	h := uint64(s.Writer)*0x9e3779b97f4a7c15 ^ uint64(s.Seq)
	for i := range p {
		h ^= h >> 31
		h *= 0xbf58476d1ce4e5b9
		p[i] = h
	}
	return
}

// Valid reports whether s is the zero Sample or a Sample written intact by
// some updater.
func (s Sample) Valid() bool { return s == Sample{} || s.Payload == s.expected() }

// A Report summarizes a completed run.
type Report struct {
	Writes    int64           // total successful updates
	Receivers []ReceiverStats // one per receiver, in order
}

// ReceiverStats records what a single receiver observed.
type ReceiverStats struct {
	Observed int    // number of values received
	Writers  int    // number of distinct writers observed
	Version  uint64 // the last version received
	Final    Sample // the last value received
}

// Run runs the stress test described by cfg, and reports what was observed.
// Run reports an error wrapping ErrViolation if any receiver observes an
// inconsistent value or version.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rcv, upd := update.NewZero[Sample]()
	g, ctx := errgroup.WithContext(ctx)

	var writes atomic.Int64
	for i := range cfg.Updaters {
		u := upd.Clone()
		g.Go(func() error {
			defer u.Close()
			for seq := 1; seq <= cfg.Updates; seq++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := u.Update(newSample(i+1, seq)); err != nil {
					return fmt.Errorf("updater %d: %w", i+1, err)
				}
				writes.Add(1)
			}
			slog.Debug("Updater finished", "updater", i+1, "updates", cfg.Updates)
			return nil
		})
	}
	upd.Close()

	stats := make([]ReceiverStats, cfg.Receivers)
	for i := range cfg.Receivers {
		r := rcv.Clone()
		g.Go(func() error {
			defer r.Close()
			if err := watch(ctx, r, cfg.Take, &stats[i]); err != nil {
				return fmt.Errorf("receiver %d: %w", i+1, err)
			}
			slog.Debug("Receiver finished", "receiver", i+1, "observed", stats[i].Observed)
			return nil
		})
	}
	rcv.Close()

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Every receiver must have caught up with the last write before it saw
	// the channel close.
	rep := &Report{Writes: writes.Load(), Receivers: stats}
	for i, st := range stats {
		if st.Version != uint64(rep.Writes) {
			return rep, fmt.Errorf("receiver %d: %w: final version %d, want %d",
				i+1, ErrViolation, st.Version, rep.Writes)
		}
	}
	return rep, nil
}

// watch polls r until the channel closes, checking each value it receives.
func watch(ctx context.Context, r *update.Receiver[Sample], take bool, st *ReceiverStats) error {
	recv := r.Recv
	if take {
		recv = r.Take
	}
	last := make(map[int]int) // writer ID → last sequence observed
	seen := mapset.New[int]()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := recv()
		if errors.Is(err, update.ErrClosed) {
			break
		} else if err != nil {
			return err
		} else if !changed {
			runtime.Gosched()
			continue
		}

		s, v := r.Get(), r.Version()
		if v <= st.Version {
			return fmt.Errorf("%w: version %d after %d", ErrViolation, v, st.Version)
		} else if !s.Valid() {
			return fmt.Errorf("%w: torn value %+v at version %d", ErrViolation, s, v)
		} else if s.Seq <= last[s.Writer] {
			return fmt.Errorf("%w: writer %d sequence %d after %d",
				ErrViolation, s.Writer, s.Seq, last[s.Writer])
		}
		last[s.Writer] = s.Seq
		seen.Add(s.Writer)
		st.Observed++
		st.Version = v
		st.Final = s
	}
	st.Writers = seen.Len()
	return nil
}
