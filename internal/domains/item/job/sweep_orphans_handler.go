package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/storage"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
)

const sweepBatchSize = 500

// SweepOrphansHandler deletes stored payloads that no row references.
// Objects younger than the grace period are skipped: an upload in flight
// writes the object before its row commits.
type SweepOrphansHandler struct {
	refs  KeyReferencer
	store storage.ObjectStore
	now   func() time.Time
}

func NewSweepOrphansHandler(refs KeyReferencer, store storage.ObjectStore) *SweepOrphansHandler {
	return &SweepOrphansHandler{refs: refs, store: store, now: time.Now}
}

func (h *SweepOrphansHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.SweepOrphansPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal SweepOrphans payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	removed, err := h.Sweep(ctx, payload.Prefix, time.Duration(payload.GraceSeconds)*time.Second)
	if err != nil {
		return err
	}

	log.Info().Str("prefix", payload.Prefix).Int("removed", removed).Msg("Orphan sweep finished")
	return nil
}

// Sweep returns how many objects were removed.
func (h *SweepOrphansHandler) Sweep(ctx context.Context, prefix string, grace time.Duration) (int, error) {
	objects, err := h.store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	cutoff := h.now().Add(-grace)
	candidates := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			candidates = append(candidates, obj.Key)
		}
	}

	removed := 0
	for start := 0; start < len(candidates); start += sweepBatchSize {
		end := min(start+sweepBatchSize, len(candidates))
		batch := candidates[start:end]

		referenced, err := h.refs.ReferencedKeys(ctx, batch)
		if err != nil {
			return removed, fmt.Errorf("check referenced keys: %w", err)
		}

		orphaned := make([]string, 0, len(batch))
		for _, k := range batch {
			if _, ok := referenced[k]; !ok {
				orphaned = append(orphaned, k)
			}
		}
		if len(orphaned) == 0 {
			continue
		}

		if err := h.store.RemoveObjects(ctx, orphaned); err != nil {
			return removed, fmt.Errorf("remove objects: %w", err)
		}
		removed += len(orphaned)
		metrics.RecordPayloadsReleased("sweep", len(orphaned))
	}

	return removed, nil
}
