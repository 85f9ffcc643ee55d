package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/sitekit/nudge/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL,
	category TEXT NOT NULL,
	status TEXT NOT NULL,
	points INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	target_ref TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	status_changed_at TIMESTAMP NOT NULL,
	snoozed_until TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tasks_provider ON tasks(provider_id);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// SQLiteStore persists task records in SQLite. The primary key on the
// identity column is what makes concurrent creation of the same identity a
// benign race: the loser gets ErrTaskExists and re-reads the winner's row.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(task *domain.TaskRecord) error {
	query := `
		INSERT INTO tasks (
			id, provider_id, category, status, points, title, description,
			url, target_ref, created_at, status_changed_at, snoozed_until
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		string(task.ID),
		task.ProviderID,
		task.Category,
		string(task.Status),
		task.Points,
		task.Title,
		task.Description,
		task.URL,
		task.TargetRef,
		task.CreatedAt,
		task.StatusChangedAt,
		nullTime(task.SnoozedUntil),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", domain.ErrTaskExists, task.ID)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(id domain.Identity, updates map[string]interface{}) (*domain.TaskRecord, error) {
	setClauses := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+1)

	for key, value := range updates {
		switch key {
		case "status":
			if status, ok := value.(domain.Status); ok {
				setClauses = append(setClauses, "status = ?")
				args = append(args, string(status))
			}
		case "statusChangedAt":
			if changedAt, ok := value.(time.Time); ok {
				setClauses = append(setClauses, "status_changed_at = ?")
				args = append(args, changedAt)
			}
		case "snoozedUntil":
			setClauses = append(setClauses, "snoozed_until = ?")
			switch v := value.(type) {
			case *time.Time:
				args = append(args, nullTime(v))
			case time.Time:
				args = append(args, nullTime(&v))
			default:
				args = append(args, nullTime(nil))
			}
		case "title":
			if title, ok := value.(string); ok {
				setClauses = append(setClauses, "title = ?")
				args = append(args, title)
			}
		case "description":
			if description, ok := value.(string); ok {
				setClauses = append(setClauses, "description = ?")
				args = append(args, description)
			}
		case "url":
			if url, ok := value.(string); ok {
				setClauses = append(setClauses, "url = ?")
				args = append(args, url)
			}
		}
	}

	if len(setClauses) == 0 {
		return s.Get(id)
	}

	args = append(args, string(id))
	query := "UPDATE tasks SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	return s.Get(id)
}

// Transition is a compare-and-set on the status column: the WHERE clause
// guards on the expected status, so of two racing writers exactly one sees
// an affected row. The snooze window is cleared because no transition routed
// through here targets the snoozed status; snoozing sets its expiry through
// Update.
func (s *SQLiteStore) Transition(id domain.Identity, from, to domain.Status, now time.Time) (*domain.TaskRecord, bool, error) {
	result, err := s.db.Exec(
		"UPDATE tasks SET status = ?, status_changed_at = ?, snoozed_until = NULL WHERE id = ? AND status = ?",
		string(to), now, string(id), string(from),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to transition task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check transition result: %w", err)
	}

	task, err := s.Get(id)
	if err != nil {
		return nil, false, err
	}
	return task, affected > 0, nil
}

const selectColumns = `
	id, provider_id, category, status, points, title, description,
	url, target_ref, created_at, status_changed_at, snoozed_until`

func (s *SQLiteStore) Get(id domain.Identity) (*domain.TaskRecord, error) {
	row := s.db.QueryRow("SELECT"+selectColumns+" FROM tasks WHERE id = ?", string(id))

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) List(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	query := "SELECT" + selectColumns + " FROM tasks"
	var conditions []string
	var args []interface{}

	if filter.ProviderID != nil {
		conditions = append(conditions, "provider_id = ?")
		args = append(args, *filter.ProviderID)
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var result []*domain.TaskRecord
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) Delete(id domain.Identity) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scannable) (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	var id, status string
	var snoozedUntil sql.NullTime

	err := row.Scan(
		&id,
		&task.ProviderID,
		&task.Category,
		&status,
		&task.Points,
		&task.Title,
		&task.Description,
		&task.URL,
		&task.TargetRef,
		&task.CreatedAt,
		&task.StatusChangedAt,
		&snoozedUntil,
	)
	if err != nil {
		return nil, err
	}

	task.ID = domain.Identity(id)
	task.Status = domain.Status(status)
	if snoozedUntil.Valid {
		until := snoozedUntil.Time
		task.SnoozedUntil = &until
	}
	return &task, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
