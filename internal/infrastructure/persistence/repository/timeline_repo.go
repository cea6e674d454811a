package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
)

// TimelineRepository implements port.TimelineRepository. Rows are append-only.
type TimelineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *sql.DB, logger *zap.Logger) port.TimelineRepository {
	return &TimelineRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one event at the end of an entity's timeline
func (r *TimelineRepository) Append(ctx context.Context, kind workflow.Kind, entityID string, evt event.Event) error {
	metadata := []byte("{}")
	if len(evt.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(evt.Metadata); err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	query := `
		INSERT INTO timeline_events (
			id, entity_kind, entity_id, kind, actor_id, actor_role, actor_name,
			description, reason_code, note, metadata, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		evt.ID,
		kind,
		entityID,
		evt.Kind,
		evt.Actor.ID,
		evt.Actor.Role,
		evt.Actor.DisplayName,
		evt.Description,
		evt.ReasonCode,
		evt.Note,
		string(metadata),
		evt.OccurredAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append timeline event",
			zap.String("entity_kind", kind.String()),
			zap.String("entity_id", entityID),
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to append timeline event: %w", err)
	}
	return nil
}

// ListByEntity returns an entity's timeline in insertion order
func (r *TimelineRepository) ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) (entity.Timeline, error) {
	query := `
		SELECT id, kind, actor_id, actor_role, actor_name, description,
			reason_code, note, metadata, occurred_at
		FROM timeline_events
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY seq
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, kind, entityID)
	if err != nil {
		r.logger.Error("Failed to list timeline", zap.String("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	defer rows.Close()

	var timeline entity.Timeline
	for rows.Next() {
		var (
			evt      event.Event
			role     string
			metadata string
		)
		if err := rows.Scan(
			&evt.ID,
			&evt.Kind,
			&evt.Actor.ID,
			&role,
			&evt.Actor.DisplayName,
			&evt.Description,
			&evt.ReasonCode,
			&evt.Note,
			&metadata,
			&evt.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timeline event: %w", err)
		}
		evt.Actor.Role = permission.Role(role)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &evt.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata of event %s: %w", evt.ID, err)
			}
		}
		timeline = append(timeline, evt)
	}
	return timeline, rows.Err()
}

var _ port.TimelineRepository = (*TimelineRepository)(nil)
