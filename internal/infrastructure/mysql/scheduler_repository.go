package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"auction-marketplace/internal/domain"
)

type MySQLSchedulerRepository struct {
	db DBTX
}

func NewMySQLSchedulerRepository(db DBTX) *MySQLSchedulerRepository {
	return &MySQLSchedulerRepository{db: db}
}

func (r *MySQLSchedulerRepository) CreateTask(ctx context.Context, task *domain.ScheduledTask) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}

	query := `
        INSERT INTO scheduled_tasks (id, kind, listing_id, payload, execute_at, completed, attempts, last_error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = r.db.ExecContext(ctx, query,
		task.ID, task.Kind.String(), task.ListingID, payload,
		task.ExecuteAt, task.Completed, task.Attempts, task.LastError, task.CreatedAt)
	return err
}

func (r *MySQLSchedulerRepository) GetDueTasks(ctx context.Context, now time.Time) ([]*domain.ScheduledTask, error) {
	query := `
        SELECT id, kind, listing_id, payload, execute_at, completed, attempts, last_error, created_at
        FROM scheduled_tasks
        WHERE execute_at <= ? AND completed = FALSE
        ORDER BY execute_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.ScheduledTask
	for rows.Next() {
		var task domain.ScheduledTask
		var kind string
		var payload []byte

		err := rows.Scan(&task.ID, &kind, &task.ListingID, &payload,
			&task.ExecuteAt, &task.Completed, &task.Attempts, &task.LastError, &task.CreatedAt)
		if err != nil {
			return nil, err
		}

		// Unknown kinds and payloads are surfaced to the dispatcher, which
		// records the failure on the row instead of aborting the whole tick.
		task.Kind, _ = domain.ParseTaskKind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &task.Payload); err != nil {
				task.Payload = domain.TaskPayload{}
			}
		}
		tasks = append(tasks, &task)
	}

	return tasks, rows.Err()
}

func (r *MySQLSchedulerRepository) DeleteTask(ctx context.Context, taskID string) error {
	query := `DELETE FROM scheduled_tasks WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, taskID)
	return err
}

func (r *MySQLSchedulerRepository) DeleteTasksForListing(ctx context.Context, listingID string, kind domain.TaskKind) error {
	query := `DELETE FROM scheduled_tasks WHERE listing_id = ? AND kind = ? AND completed = FALSE`
	_, err := r.db.ExecContext(ctx, query, listingID, kind.String())
	return err
}

func (r *MySQLSchedulerRepository) RecordFailure(ctx context.Context, taskID, reason string) error {
	query := `UPDATE scheduled_tasks SET attempts = attempts + 1, last_error = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, truncate(reason, 512), taskID)
	return err
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
