// Package poller drives a tailoring job from submission to a terminal state
// and hands the outcome to the result view through the handoff store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-tailor/internal/handoff"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/telemetry"
)

const (
	PollInterval     = 3 * time.Second
	Timeout          = 300 * time.Second
	MaxUnknownStatus = 5
)

// State of the poll loop.
type State string

const (
	StateInit      State = "INIT"
	StatePolling   State = "POLLING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
)

// Failure reasons written with error envelopes.
const (
	ReasonTimeout = "timeout"
	ReasonFailed  = "failed"
	ReasonError   = "error"
)

const (
	msgNoJobID   = "No job ID found"
	msgTimeout   = "Job timeout"
	msgJobFailed = "Job failed"
)

// Fetcher returns the current status of a job. *jobs.Client implements it.
type Fetcher interface {
	Status(ctx context.Context, jobID string) (jobs.Status, error)
}

// Options tunes the loop. Zero values take the package defaults.
type Options struct {
	Interval   time.Duration
	Timeout    time.Duration
	MaxUnknown int
	Clock      Clock
	// OnStatus, when set, sees every non-terminal status fetched.
	OnStatus func(jobs.Status)
}

// Outcome describes how a Run ended.
type Outcome struct {
	State   State
	JobID   string
	Status  jobs.Status
	Message string
	Reason  string
	Polls   int
	Elapsed time.Duration
}

// Poller runs poll loops against one job backend.
type Poller struct {
	fetch Fetcher
	opts  Options
}

// New builds a Poller.
func New(fetch Fetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.MaxUnknown <= 0 {
		opts.MaxUnknown = MaxUnknownStatus
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Poller{fetch: fetch, opts: opts}
}

type fetchResult struct {
	status jobs.Status
	err    error
}

// Run polls the job recorded in sess until it is terminal, the deadline
// passes or ctx is done. A terminal outcome is written to sess exactly once.
// On cancellation nothing is written and ctx.Err() is returned.
func (p *Poller) Run(ctx context.Context, sess *handoff.Session) (Outcome, error) {
	out := Outcome{State: StateInit}
	jobID, err := sess.JobID(ctx)
	if err != nil {
		return out, fmt.Errorf("read job id: %w", err)
	}
	if jobID == "" {
		return p.fail(ctx, sess, out, msgNoJobID, ReasonError, nil)
	}
	out.JobID = jobID
	out.State = StatePolling

	clock := p.opts.Clock
	start := clock.Now()
	deadline := clock.NewTimer(p.opts.Timeout)
	defer deadline.Stop()

	unknown := 0
	for {
		res, done := p.fetchOnce(ctx, jobID, deadline)
		out.Polls++
		out.Elapsed = clock.Now().Sub(start)
		if done != nil {
			return p.stop(ctx, sess, out, done)
		}
		if out.Elapsed >= p.opts.Timeout {
			// the response raced the deadline; it is dropped
			return p.timeout(ctx, sess, out)
		}

		switch {
		case res.err != nil && errors.Is(res.err, jobs.ErrUnknownStatus):
			unknown++
			if unknown > p.opts.MaxUnknown {
				return p.fail(ctx, sess, out, res.err.Error(), ReasonError, nil)
			}
		case res.err != nil:
			return p.fail(ctx, sess, out, res.err.Error(), ReasonError, nil)
		case res.status.Kind == jobs.KindCompleted:
			return p.succeed(ctx, sess, out, res.status)
		case res.status.Kind == jobs.KindFailed:
			out.Status = res.status
			payload := res.status.Payload
			if len(payload) == 0 {
				payload = res.status.Raw
			}
			return p.fail(ctx, sess, out, res.status.Reason, ReasonFailed, payload)
		default:
			unknown = 0
			out.Status = res.status
			if p.opts.OnStatus != nil {
				p.opts.OnStatus(res.status)
			}
		}

		tick := clock.NewTimer(p.opts.Interval)
		select {
		case <-ctx.Done():
			tick.Stop()
			return out, ctx.Err()
		case <-deadline.C():
			tick.Stop()
			out.Elapsed = clock.Now().Sub(start)
			return p.timeout(ctx, sess, out)
		case <-tick.C():
		}
	}
}

// stopSignal reports why a fetch was abandoned.
type stopSignal struct{ cancelled bool }

// fetchOnce awaits exactly one status fetch. It returns a non-nil stopSignal
// when ctx or the deadline fired first; the in-flight fetch is cancelled and
// its late result is never read.
func (p *Poller) fetchOnce(ctx context.Context, jobID string, deadline Timer) (fetchResult, *stopSignal) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan fetchResult, 1)
	go func() {
		st, err := p.fetch.Status(fetchCtx, jobID)
		ch <- fetchResult{status: st, err: err}
	}()
	metrics.IncJobPoll()

	select {
	case <-ctx.Done():
		return fetchResult{}, &stopSignal{cancelled: true}
	case <-deadline.C():
		return fetchResult{}, &stopSignal{}
	case res := <-ch:
		if ctx.Err() != nil {
			return fetchResult{}, &stopSignal{cancelled: true}
		}
		return res, nil
	}
}

func (p *Poller) stop(ctx context.Context, sess *handoff.Session, out Outcome, sig *stopSignal) (Outcome, error) {
	if sig.cancelled {
		return out, ctx.Err()
	}
	return p.timeout(ctx, sess, out)
}

func (p *Poller) timeout(ctx context.Context, sess *handoff.Session, out Outcome) (Outcome, error) {
	metrics.IncJobTimeout()
	return p.fail(ctx, sess, out, msgTimeout, ReasonTimeout, nil)
}

func (p *Poller) succeed(ctx context.Context, sess *handoff.Session, out Outcome, st jobs.Status) (Outcome, error) {
	out.State = StateSucceeded
	out.Status = st
	if err := sess.WriteSuccess(ctx, st.Raw); err != nil {
		return out, fmt.Errorf("write success: %w", err)
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(out.Elapsed.Milliseconds()))
	telemetry.Info("poller.succeeded", map[string]any{
		"job_id":      out.JobID,
		"polls":       out.Polls,
		"duration_ms": out.Elapsed.Milliseconds(),
	})
	return out, nil
}

func (p *Poller) fail(ctx context.Context, sess *handoff.Session, out Outcome, message, reason string, payload []byte) (Outcome, error) {
	if message == "" {
		message = msgJobFailed
	}
	out.State = StateFailed
	out.Message = message
	out.Reason = reason
	if err := sess.WriteError(ctx, message, reason, payload); err != nil {
		return out, fmt.Errorf("write error: %w", err)
	}
	if reason != ReasonTimeout {
		metrics.IncJobFailed()
	}
	if out.JobID != "" {
		metrics.ObserveJobDurationMs(float64(out.Elapsed.Milliseconds()))
	}
	telemetry.Warn("poller.failed", map[string]any{
		"job_id":      out.JobID,
		"reason":      reason,
		"message":     message,
		"polls":       out.Polls,
		"duration_ms": out.Elapsed.Milliseconds(),
	})
	return out, nil
}
