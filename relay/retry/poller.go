package retry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relaycore/relaycore/types"
)

// DefaultPollAttempts is used when maxAttempts <= 0.
const DefaultPollAttempts = 10

// ErrImmatureRecord matches, via errors.Is, the error returned when polling
// is exhausted.
var ErrImmatureRecord = types.NewError(types.ErrImmatureRecord, "record is not mature")

// PollUntilMature calls accessor until isMature passes, at most maxAttempts
// times. An accessor error is returned at once. Exhaustion never yields the
// incomplete value.
func PollUntilMature[T any](
	ctx context.Context,
	accessor func(ctx context.Context) (T, error),
	isMature func(T) bool,
	maxAttempts int,
	opts ...Option,
) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	o := buildOptions("poll_until_mature", opts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.beforeRetry(ctx, attempt); err != nil {
			return zero, err
		}

		v, err := accessor(ctx)
		if err != nil {
			return zero, err
		}
		if isMature(v) {
			if attempt > 1 {
				o.logger.Debug("record matured",
					zap.String("operation", o.operation),
					zap.Int("attempts", attempt),
				)
			}
			return v, nil
		}
	}

	o.logger.Warn("record still immature after polling",
		zap.String("operation", o.operation),
		zap.Int("attempts", maxAttempts),
	)
	return zero, types.NewError(types.ErrImmatureRecord,
		fmt.Sprintf("record still immature after %d attempts", maxAttempts)).
		WithHTTPStatus(503).
		WithRetryable(true).
		WithMethod(o.operation)
}
