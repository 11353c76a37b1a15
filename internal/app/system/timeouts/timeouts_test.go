package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDefaults(t *testing.T) {
	Reset()
	if Store() != DefaultStore {
		t.Errorf("Store() = %v, want %v", Store(), DefaultStore)
	}
	if Long() != DefaultLong {
		t.Errorf("Long() = %v, want %v", Long(), DefaultLong)
	}
}

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	Reset()
	defer Reset()

	Configure(Config{Store: 750 * time.Millisecond, Batch: 5 * time.Minute})

	if Store() != 750*time.Millisecond {
		t.Errorf("Store() = %v, want 750ms", Store())
	}
	if Batch() != 5*time.Minute {
		t.Errorf("Batch() = %v, want 5m", Batch())
	}
	if Short() != DefaultShort {
		t.Errorf("Short() = %v, want default %v", Short(), DefaultShort)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}
