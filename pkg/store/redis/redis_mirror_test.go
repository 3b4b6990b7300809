package redis

import (
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hexperiment/sircontrol/pkg/sir"
	"github.com/hexperiment/sircontrol/pkg/store"
)

// Integration test; needs a reachable Redis. Set SIRCONTROL_TEST_REDIS_ADDR
// to run it.
func TestRunMirrorRoundTrip(t *testing.T) {
	addr := os.Getenv("SIRCONTROL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SIRCONTROL_TEST_REDIS_ADDR not set, skipping redis integration test")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	mirror := NewRunMirror(client)
	mirror.Clear()
	defer mirror.Clear()

	now := time.Now().UTC().Truncate(time.Second)
	summary := store.RunSummary{
		RunID:  "mirror-test-run",
		Status: store.RunStatusCompleted,
		Parameters: sir.Parameters{
			TransmissionRate: 0.3,
			RecoveryRate:     0.1,
			Population:       1000,
			InitialInfected:  10,
			Scenario:         sir.ScenarioLockdown,
			DurationDays:     365,
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	mirror.Set(summary)

	got, ok := mirror.Get(summary.RunID)
	if !ok {
		t.Fatal("expected mirrored summary to be readable")
	}
	if got.RunID != summary.RunID || got.Status != summary.Status {
		t.Errorf("summary mismatch: %+v", got)
	}
	if got.Parameters != summary.Parameters {
		t.Errorf("parameters mismatch: %+v", got.Parameters)
	}

	all := mirror.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected 1 mirrored summary, got %d", len(all))
	}

	mirror.Clear()
	if _, ok := mirror.Get(summary.RunID); ok {
		t.Error("expected mirror to be empty after Clear")
	}
}
