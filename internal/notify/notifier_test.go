package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFanout_DeliversToAll(t *testing.T) {
	var got []string
	a := NotifierFunc(func(ctx context.Context, n Notification) error {
		got = append(got, "a:"+n.Body)
		return nil
	})
	b := NotifierFunc(func(ctx context.Context, n Notification) error {
		got = append(got, "b:"+n.Body)
		return nil
	})

	f := NewFanout(discardLogger(), a, nil, b)
	assert.Equal(t, 2, f.Len())

	err := f.Notify(context.Background(), Notification{Body: "x"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestFanout_ReportsPartialFailure(t *testing.T) {
	calls := 0
	failing := NotifierFunc(func(ctx context.Context, n Notification) error {
		calls++
		return errors.New("permission denied")
	})
	ok := NotifierFunc(func(ctx context.Context, n Notification) error {
		calls++
		return nil
	})

	f := NewFanout(discardLogger(), failing)
	f.Add(ok)

	err := f.Notify(context.Background(), Notification{})
	assert.Equal(t, 2, calls)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.True(t, derr.Partial())
	assert.Equal(t, 1, derr.Delivered)
	assert.Len(t, derr.Errs, 1)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestFanout_AllFail(t *testing.T) {
	denied := errors.New("permission denied")
	f := NewFanout(discardLogger(),
		NotifierFunc(func(ctx context.Context, n Notification) error { return denied }),
		NotifierFunc(func(ctx context.Context, n Notification) error { return errors.New("timeout") }),
	)

	err := f.Notify(context.Background(), Notification{})

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.False(t, derr.Partial())
	assert.Len(t, derr.Errs, 2)
	assert.ErrorIs(t, err, denied)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, NewFanout(discardLogger()).Notify(context.Background(), Notification{}))
}

func TestFanout_StopsOnCancel(t *testing.T) {
	called := false
	f := NewFanout(discardLogger(), NotifierFunc(func(ctx context.Context, n Notification) error {
		called = true
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Notify(ctx, Notification{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
