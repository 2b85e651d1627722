package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/store"
)

// NewRemoteHandler returns a Handler that replays deferred appointment
// mutations against the remote store.
func NewRemoteHandler(repo store.AppointmentRepository) Handler {
	return func(ctx context.Context, e Entry) error {
		switch e.Operation {
		case "create":
			var appt domain.Appointment
			if err := json.Unmarshal(e.Payload, &appt); err != nil {
				return fmt.Errorf("decode create payload: %w", err)
			}
			_, err := repo.Insert(ctx, appt)
			return err
		case "update":
			var p struct {
				ID     string         `json:"id"`
				Fields map[string]any `json:"fields"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return fmt.Errorf("decode update payload: %w", err)
			}
			_, err := repo.Update(ctx, p.ID, p.Fields)
			return err
		case "delete":
			var p struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return fmt.Errorf("decode delete payload: %w", err)
			}
			return repo.Delete(ctx, p.ID)
		default:
			return fmt.Errorf("unknown operation %q", e.Operation)
		}
	}
}
