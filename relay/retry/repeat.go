package retry

import (
	"context"

	"go.uber.org/zap"
)

// DefaultRepeatAttempts is used when maxAttempts <= 0.
const DefaultRepeatAttempts = 10

// Repeat calls accessor until it reports Found, at most maxAttempts times.
// Exhaustion is not an error: it returns (zero, false, nil). A Failed
// result is returned at once.
func Repeat[T any](
	ctx context.Context,
	accessor func(ctx context.Context) Result[T],
	maxAttempts int,
	opts ...Option,
) (T, bool, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultRepeatAttempts
	}
	o := buildOptions("repeat", opts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.beforeRetry(ctx, attempt); err != nil {
			return zero, false, err
		}

		r := accessor(ctx)
		if err := r.Err(); err != nil {
			return zero, false, err
		}
		if v, ok := r.Value(); ok {
			return v, true, nil
		}
	}

	o.logger.Debug("value not found after repeated lookups",
		zap.String("operation", o.operation),
		zap.Int("attempts", maxAttempts),
	)
	return zero, false, nil
}
