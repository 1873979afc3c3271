package qdrant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// call runs fn with a fresh RequestTimeout per attempt and retries
// transient gRPC failures with exponential backoff.
func call[T any](ctx context.Context, c *GRPCClient, op, collection string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	backoff := c.config.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	start := time.Now()
	fields := []zap.Field{zap.String("op", op), zap.String("collection", collection)}

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		result, err := attemptOnce(ctx, c.config.RequestTimeout, fn)
		if err == nil {
			if attempt > 0 {
				c.logger.Info(ctx, "qdrant call recovered after retries",
					append(fields, zap.Int("retries", attempt), zap.Duration("elapsed", time.Since(start)))...)
			}
			return result, nil
		}

		lastErr = err
		if !isTransientError(err) || attempt == c.config.RetryAttempts {
			break
		}

		c.logger.Debug(ctx, "retrying qdrant call after transient error",
			append(fields, zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))...)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s canceled: %w", op, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	if !isTransientError(lastErr) || c.config.RetryAttempts == 0 {
		return zero, lastErr
	}
	c.logger.Warn(ctx, "qdrant call failed after retries",
		append(fields, zap.Int("attempts", c.config.RetryAttempts+1), zap.Duration("elapsed", time.Since(start)), zap.Error(lastErr))...)
	return zero, fmt.Errorf("%s failed after %d retries: %w", op, c.config.RetryAttempts, lastErr)
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// exec is call for operations without a result.
func exec(ctx context.Context, c *GRPCClient, op, collection string, fn func(ctx context.Context) error) error {
	_, err := call(ctx, c, op, collection, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// isTransientError reports whether a gRPC status is worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
