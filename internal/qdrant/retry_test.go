package qdrant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/ragmemory/internal/logging"
)

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"aborted", status.Error(codes.Aborted, "conflict"), true},
		{"exhausted", status.Error(codes.ResourceExhausted, "busy"), true},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad dim"), false},
		{"not found", status.Error(codes.NotFound, "missing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransientError(tt.err))
		})
	}
}

func testClient(retries int, backoff time.Duration) (*GRPCClient, *logging.Recorder) {
	rec := logging.NewRecorder()
	return &GRPCClient{
		config: &ClientConfig{RetryAttempts: retries, RetryBackoff: backoff, RequestTimeout: time.Second},
		logger: rec.Logger,
	}, rec
}

func TestCall(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "service unavailable")

	tests := []struct {
		name      string
		failures  []error
		retries   int
		wantErr   error
		wantCalls int
		wantLogs  map[zapcore.Level]string
	}{
		{name: "success first time", retries: 3, wantCalls: 1},
		{
			name:      "transient error then success",
			failures:  []error{unavailable},
			retries:   3,
			wantCalls: 2,
			wantLogs: map[zapcore.Level]string{
				zapcore.DebugLevel: "retrying qdrant call after transient error",
				zapcore.InfoLevel:  "qdrant call recovered after retries",
			},
		},
		{
			name:      "retries exhausted",
			failures:  []error{unavailable, unavailable, unavailable},
			retries:   2,
			wantErr:   unavailable,
			wantCalls: 3,
			wantLogs: map[zapcore.Level]string{
				zapcore.WarnLevel: "qdrant call failed after retries",
			},
		},
		{
			name:      "zero retries makes a single attempt",
			failures:  []error{unavailable},
			retries:   0,
			wantErr:   unavailable,
			wantCalls: 1,
		},
		{
			name:      "permanent error is returned unwrapped",
			failures:  []error{status.Error(codes.InvalidArgument, "bad vector size")},
			retries:   3,
			wantErr:   status.Error(codes.InvalidArgument, "bad vector size"),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testClient(tt.retries, time.Millisecond)
			calls := 0
			got, err := call(context.Background(), c, "query", "chatgpt_conversations", func(ctx context.Context) (int, error) {
				calls++
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline, "each attempt carries the request timeout")
				if calls <= len(tt.failures) {
					return 0, tt.failures[calls-1]
				}
				return 42, nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				if calls == 1 {
					assert.Equal(t, tt.wantErr.Error(), err.Error())
				} else {
					assert.Equal(t, status.Code(tt.wantErr), status.Code(errors.Unwrap(err)), "got %v", err)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, 42, got)
			}
			for level, msg := range tt.wantLogs {
				assert.True(t, rec.Logged(level, msg), "%v logs: %v", level, rec.Messages(level))
			}
		})
	}
}

func TestCall_ContextCanceledDuringBackoff(t *testing.T) {
	c, _ := testClient(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec(ctx, c, "upsert", "claude_conversations", func(context.Context) error {
		return status.Error(codes.Unavailable, "down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "upsert canceled")
}

func TestNewGRPCClient_RequiresLogger(t *testing.T) {
	_, err := NewGRPCClient(context.Background(), DefaultClientConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}
