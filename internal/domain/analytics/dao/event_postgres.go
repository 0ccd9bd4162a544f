package dao

import (
	"context"
	"fmt"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

// EventPostgres implements widget event reads for PostgreSQL
type EventPostgres struct {
	db DB
}

// NewEventPostgres creates a new PostgreSQL event repository
func NewEventPostgres(db DB) *EventPostgres {
	return &EventPostgres{db: db}
}

// List retrieves events of the given widgets inside the filter's time range
func (r *EventPostgres) List(ctx context.Context, filter entity.EventFilter) ([]entity.WidgetEvent, error) {
	if len(filter.WidgetIDs) == 0 {
		return nil, nil
	}

	upper := "<"
	if filter.ToInclusive {
		upper = "<="
	}

	query := `
		SELECT COALESCE(session_id, ''), widget_id::text, event_type, event_data, created_at
		FROM widget_events
		WHERE widget_id = ANY($1)
		  AND created_at >= $2
		  AND created_at ` + upper + ` $3
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, filter.WidgetIDs, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("querying widget events: %w", err)
	}
	defer rows.Close()

	var events []entity.WidgetEvent
	for rows.Next() {
		var (
			ev   entity.WidgetEvent
			data []byte
		)
		if err := rows.Scan(&ev.SessionID, &ev.WidgetID, &ev.Type, &data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning widget event row: %w", err)
		}
		ev.Data = data
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating widget event rows: %w", err)
	}

	return events, nil
}
