package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/hexperiment/sircontrol/pkg/store"
)

const runsSet = "sircontrol:runs"

// RunMirror publishes completed-run summaries to Redis so external
// dashboards can read them without touching the SQLite registry. It is
// best-effort and write-only from the daemon's point of view: SQLite stays
// the system of record and failures are logged, never propagated.
type RunMirror struct {
	client *redis.Client
}

func NewRunMirror(client *redis.Client) *RunMirror {
	return &RunMirror{client: client}
}

func (m *RunMirror) makeKey(id store.RunID) string {
	return fmt.Sprintf("sircontrol:run:%s", id)
}

// Set stores a summary under its run key and indexes it in the runs set.
func (m *RunMirror) Set(summary store.RunSummary) {
	key := m.makeKey(summary.RunID)
	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Failed to marshal RunSummary: %v", err)
		return
	}
	ctx := context.Background()
	if err := m.client.Set(ctx, key, data, 0).Err(); err != nil {
		log.Printf("Failed to SET key %s: %v", key, err)
		return
	}
	if err := m.client.SAdd(ctx, runsSet, key).Err(); err != nil {
		log.Printf("Failed to SADD key %s to set: %v", key, err)
	}
}

// Get returns the mirrored summary for a run, if present.
func (m *RunMirror) Get(id store.RunID) (store.RunSummary, bool) {
	key := m.makeKey(id)
	ctx := context.Background()
	data, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return store.RunSummary{}, false
		}
		log.Printf("Failed to GET key %s: %v", key, err)
		return store.RunSummary{}, false
	}
	var summary store.RunSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		log.Printf("Failed to unmarshal RunSummary from key %s: %v", key, err)
		return store.RunSummary{}, false
	}
	return summary, true
}

// GetAll returns every mirrored summary.
func (m *RunMirror) GetAll() []store.RunSummary {
	ctx := context.Background()
	keys, err := m.client.SMembers(ctx, runsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s: %v", runsSet, err)
		return nil
	}
	if len(keys) == 0 {
		return []store.RunSummary{}
	}
	values, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("Failed to MGET keys: %v", err)
		return nil
	}
	var summaries []store.RunSummary
	for i, val := range values {
		if val == nil {
			continue
		}
		str, ok := val.(string)
		if !ok {
			log.Printf("MGET returned non-string for key %s", keys[i])
			continue
		}
		var summary store.RunSummary
		if err := json.Unmarshal([]byte(str), &summary); err != nil {
			log.Printf("Failed to unmarshal RunSummary for key %s: %v", keys[i], err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// Clear removes all mirrored summaries and the index set.
func (m *RunMirror) Clear() {
	ctx := context.Background()
	keys, err := m.client.SMembers(ctx, runsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s during clear: %v", runsSet, err)
		return
	}
	if len(keys) > 0 {
		if err := m.client.Del(ctx, keys...).Err(); err != nil {
			log.Printf("Failed to DEL keys: %v", err)
		}
	}
	if err := m.client.Del(ctx, runsSet).Err(); err != nil {
		log.Printf("Failed to DEL set %s: %v", runsSet, err)
	}
}
