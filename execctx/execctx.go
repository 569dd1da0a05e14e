// Package execctx carries the progress-reporting and
// cancellation-polling hooks threaded through pipeline execution
// (spec.md §5 "Context"). Its only dependency outside the standard
// library is golang.org/x/time/rate, used to throttle the wall-clock
// cadence of progress callbacks the same way
// internal/net/ratelimit.Limiter throttles outbound requests in the
// teacher repo; transform, pipeline, and gather can all depend on
// execctx without creating an import cycle.
package execctx

import "golang.org/x/time/rate"

// ProgressFunc is called with the number of elements processed so far
// and the total known at the time of the call (total may be -1 if
// unknown, e.g. inside a Lazy chain). Implementations must not block.
type ProgressFunc func(done, total int)

// Context is passed through container-level transforms and the
// pipeline runtime. Its zero value is a valid, no-op context: no
// progress is reported and cancellation never fires.
type Context struct {
	onProgress ProgressFunc
	cancelled  func() bool
	limiter    *rate.Limiter
}

// New builds a Context from optional progress and cancellation hooks.
// Either may be nil.
func New(onProgress ProgressFunc, cancelled func() bool) *Context {
	return &Context{onProgress: onProgress, cancelled: cancelled}
}

// NewRateLimited builds a Context whose progress callbacks are
// throttled to at most rps per second (with burst allowed through
// immediately), the same token-bucket shape
// internal/net/ratelimit.Limiter applies per host. It exists for
// high-frequency element-wise steps where the caller's onProgress
// hook is costly (e.g. it repaints a UI) and every intermediate call
// is not worth its cost; the completion call (done == total) always
// goes through regardless of the limiter's state, preserving the "at
// least once every ProgressEvery elements" floor at the one point
// callers actually depend on it: knowing a step has finished.
func NewRateLimited(onProgress ProgressFunc, cancelled func() bool, rps float64, burst int) *Context {
	return &Context{
		onProgress: onProgress,
		cancelled:  cancelled,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// ReportProgress invokes the installed progress hook, if any. When the
// Context was built with NewRateLimited, intermediate calls are
// dropped once the token bucket is exhausted; the final call
// (done == total) is never dropped.
func (c *Context) ReportProgress(done, total int) {
	if c == nil || c.onProgress == nil {
		return
	}
	if c.limiter != nil && done != total && !c.limiter.Allow() {
		return
	}
	c.onProgress(done, total)
}

// IsCancelled polls the installed cancellation hook. A nil Context, or
// a Context with no cancellation hook installed, is never cancelled.
func (c *Context) IsCancelled() bool {
	if c == nil || c.cancelled == nil {
		return false
	}
	return c.cancelled()
}

// ProgressEvery is the spec-mandated floor: element-level and
// time-grouped steps must report at least once every this many
// elements (spec.md §4.4, §5). It is a var, not a const, so
// engineconfig can override it at process start.
var ProgressEvery = 100
