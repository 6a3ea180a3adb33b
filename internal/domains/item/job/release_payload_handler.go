package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/storage"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
)

// KeyReferencer reports which object keys are still referenced by item rows.
type KeyReferencer interface {
	ReferencedKeys(ctx context.Context, keys []string) (map[string]struct{}, error)
}

// ReleasePayloadHandler removes payloads whose rows were deleted or replaced.
// It serves both single item deletes and collection purges.
type ReleasePayloadHandler struct {
	refs  KeyReferencer
	store storage.ObjectStore
}

func NewReleasePayloadHandler(refs KeyReferencer, store storage.ObjectStore) *ReleasePayloadHandler {
	return &ReleasePayloadHandler{refs: refs, store: store}
}

func (h *ReleasePayloadHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.ReleasePayloadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal ReleasePayload payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Keys) == 0 {
		return nil
	}

	// A key may have been reused by a row committed after the task was queued.
	referenced, err := h.refs.ReferencedKeys(ctx, payload.Keys)
	if err != nil {
		return fmt.Errorf("check referenced keys: %w", err)
	}

	orphaned := make([]string, 0, len(payload.Keys))
	for _, k := range payload.Keys {
		if _, ok := referenced[k]; !ok {
			orphaned = append(orphaned, k)
		}
	}
	if len(orphaned) == 0 {
		log.Info().Str("reason", payload.Reason).Int("keys", len(payload.Keys)).Msg("all payloads still referenced, nothing to release")
		return nil
	}

	if err := h.store.RemoveObjects(ctx, orphaned); err != nil {
		log.Error().
			Err(err).
			Str("reason", payload.Reason).
			Int("keys", len(orphaned)).
			Msg("Failed to release payloads")
		return fmt.Errorf("remove objects: %w", err)
	}

	metrics.RecordPayloadsReleased("queued", len(orphaned))
	log.Info().
		Str("reason", payload.Reason).
		Int("released", len(orphaned)).
		Int("skipped", len(payload.Keys)-len(orphaned)).
		Msg("Payloads released")

	return nil
}
