package translate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/codeshift/internal/translate"
)

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	if translate.NewLimiter(0) != nil {
		t.Error("NewLimiter(0) should disable limiting")
	}
	if l := translate.NewLimiter(60); l == nil || l.Limit() != 1 {
		t.Errorf("NewLimiter(60) = %v, want 1 request per second", l)
	}
}

func TestThrottle_PauseHonorsContext(t *testing.T) {
	t.Parallel()

	th := translate.NewThrottle(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := th.Pause(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Pause = %v, want context.Canceled", err)
	}
}

func TestThrottle_NilIsNoop(t *testing.T) {
	t.Parallel()

	var th *translate.Throttle
	if err := th.Admit(context.Background()); err != nil {
		t.Error(err)
	}
	if err := th.Pause(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestThrottle_LimiterSpacesRequests(t *testing.T) {
	t.Parallel()

	th := translate.NewThrottle(0, translate.NewLimiter(1200)) // one every 50ms
	started := time.Now()
	for range 3 {
		if err := th.Admit(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(started); elapsed < 90*time.Millisecond {
		t.Errorf("elapsed = %v, want about 100ms", elapsed)
	}
}
