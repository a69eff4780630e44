package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ivlasov/claimfold/internal/llm"
	"github.com/ivlasov/claimfold/internal/model"
)

// Terminal invoker failures
var (
	// ErrBudgetExhausted means a daily cap was hit. Every subsequent
	// call in the run fails fast with it; waiting for the next day is
	// never an option within a single run.
	ErrBudgetExhausted = errors.New("daily budget exhausted")

	// ErrRateLimitExhausted means the bounded backoff-retry loop gave
	// up. Fatal for the run.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")
)

// Limits bounds the external-service invocation rate. Zero values
// disable the corresponding cap.
type Limits struct {
	RequestsPerMinute   int
	TokensPerMinute     int
	RequestsPerDay      int
	TokensPerDay        int
	Cooldown            time.Duration // Wait after a rate-limit signal
	PaceDelay           time.Duration // Minimum gap between sends
	MaxRateRetries      int
	MaxTransientRetries int
	CallTimeout         time.Duration // Bound on each send attempt
}

// LimitsFromConfig converts model.BudgetConfig to Limits
func LimitsFromConfig(bc model.BudgetConfig, callTimeout time.Duration) Limits {
	return Limits{
		RequestsPerMinute:   bc.RequestsPerMinute,
		TokensPerMinute:     bc.TokensPerMinute,
		RequestsPerDay:      bc.RequestsPerDay,
		TokensPerDay:        bc.TokensPerDay,
		Cooldown:            bc.Cooldown,
		PaceDelay:           bc.PaceDelay,
		MaxRateRetries:      bc.MaxRateRetries,
		MaxTransientRetries: bc.MaxTransientRetries,
		CallTimeout:         callTimeout,
	}
}

// State tracks consumption against the minute and day windows. The
// windows roll independently. Owned exclusively by one Invoker and
// never persisted across runs.
type State struct {
	WindowStart       time.Time
	RequestsInWindow  int
	TokensInWindow    int
	DayStart          time.Time
	RequestsToday     int
	TokensToday       int
	LastSend          time.Time
}

// roll resets window counters whose period has elapsed
func (s *State) roll(now time.Time) {
	if s.WindowStart.IsZero() || now.Sub(s.WindowStart) >= time.Minute {
		s.WindowStart = now
		s.RequestsInWindow = 0
		s.TokensInWindow = 0
	}
	if s.DayStart.IsZero() {
		s.DayStart = now
	}
	if now.Sub(s.DayStart) >= 24*time.Hour {
		s.DayStart = now
		s.RequestsToday = 0
		s.TokensToday = 0
	}
}

// Call performs one attempt against the external service and reports
// the tokens it actually consumed
type Call func(ctx context.Context) (text string, tokensUsed int, err error)

// Invoker schedules calls to a quota-limited external service. It
// paces proactively against the per-minute caps, backs off and retries
// on rate-limit signals with a bounded attempt count, retries transient
// faults without cooldown, and fails fast once a daily cap is spent.
// One call is in flight at a time by construction.
type Invoker struct {
	limits Limits

	mu    sync.Mutex
	state State

	// Injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an invoker with fresh budget state
func NewInvoker(limits Limits) *Invoker {
	return &Invoker{
		limits: limits,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Invoke runs call under the budget. estimatedTokens is the caller's
// upper-bound guess for the payload cost, used for pacing decisions
// before the actual cost is known.
func (inv *Invoker) Invoke(ctx context.Context, estimatedTokens int, call Call) (string, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	rateAttempts := 0
	transientAttempts := 0

	for {
		if err := inv.checkDaily(estimatedTokens); err != nil {
			return "", err
		}
		if err := inv.pace(ctx, estimatedTokens); err != nil {
			return "", err
		}

		text, used, err := inv.send(ctx, call)
		if used <= 0 {
			used = estimatedTokens
		}
		inv.record(used)

		switch {
		case err == nil:
			return text, nil

		case llm.IsRateLimited(err):
			rateAttempts++
			if rateAttempts > inv.limits.MaxRateRetries {
				return "", fmt.Errorf("%w after %d attempts: %v", ErrRateLimitExhausted, rateAttempts, err)
			}
			if serr := inv.sleep(ctx, inv.limits.Cooldown); serr != nil {
				return "", serr
			}

		case llm.IsTransient(err):
			transientAttempts++
			if transientAttempts > inv.limits.MaxTransientRetries {
				return "", err
			}

		default:
			// Fatal or context cancellation
			return "", err
		}
	}
}

// send performs one SENT attempt with the call-level timeout bound
func (inv *Invoker) send(ctx context.Context, call Call) (string, int, error) {
	if inv.limits.CallTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, inv.limits.CallTimeout)
		defer cancel()
		ctx = callCtx
	}
	inv.state.LastSend = inv.now()
	return call(ctx)
}

// checkDaily fails fast when a daily cap is already spent or this call
// would spend it
func (inv *Invoker) checkDaily(estimatedTokens int) error {
	inv.state.roll(inv.now())

	if inv.limits.RequestsPerDay > 0 && inv.state.RequestsToday+1 > inv.limits.RequestsPerDay {
		return fmt.Errorf("%w: %d requests today", ErrBudgetExhausted, inv.state.RequestsToday)
	}
	if inv.limits.TokensPerDay > 0 && inv.state.TokensToday+estimatedTokens > inv.limits.TokensPerDay {
		return fmt.Errorf("%w: %d tokens today, %d more estimated", ErrBudgetExhausted, inv.state.TokensToday, estimatedTokens)
	}
	return nil
}

// pace sleeps until the call fits inside the rolling minute window and
// the inter-call gap. Sleeping here replaces a reactive retry storm
// with a deterministic delay.
func (inv *Invoker) pace(ctx context.Context, estimatedTokens int) error {
	for {
		now := inv.now()
		inv.state.roll(now)

		if inv.limits.PaceDelay > 0 && !inv.state.LastSend.IsZero() {
			if gap := inv.limits.PaceDelay - now.Sub(inv.state.LastSend); gap > 0 {
				if err := inv.sleep(ctx, gap); err != nil {
					return err
				}
				continue
			}
		}

		if inv.limits.RequestsPerMinute > 0 && inv.state.RequestsInWindow+1 > inv.limits.RequestsPerMinute {
			if err := inv.sleep(ctx, inv.windowRemaining(now)); err != nil {
				return err
			}
			continue
		}

		if inv.limits.TokensPerMinute > 0 && inv.state.TokensInWindow+estimatedTokens > inv.limits.TokensPerMinute {
			// An oversized single payload goes out alone against an
			// empty window rather than waiting forever
			if inv.state.TokensInWindow == 0 {
				return nil
			}
			if err := inv.sleep(ctx, inv.windowRemaining(now)); err != nil {
				return err
			}
			continue
		}

		return nil
	}
}

func (inv *Invoker) windowRemaining(now time.Time) time.Duration {
	rem := inv.state.WindowStart.Add(time.Minute).Sub(now)
	if rem <= 0 {
		rem = time.Millisecond
	}
	return rem
}

// record charges one request and its token cost to both windows
func (inv *Invoker) record(tokens int) {
	inv.state.RequestsInWindow++
	inv.state.TokensInWindow += tokens
	inv.state.RequestsToday++
	inv.state.TokensToday += tokens
}

// Snapshot returns a copy of the current budget state
func (inv *Invoker) Snapshot() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// sleepContext sleeps for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
