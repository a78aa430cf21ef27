package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// StepStore persists the decomposition arena: one row per step, a weak
// self-reference for the parent link and an integer level instead of an
// in-memory pointer tree. All hierarchy queries are indexed lookups.
type StepStore struct {
	DB *sql.DB
}

func NewStepStore(dbPath string) (*StepStore, error) {
	// The pragma rides on the DSN so every pooled connection enforces the
	// cascades (task -> steps, parent -> subtree).
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			parent_step_id TEXT REFERENCES steps(id) ON DELETE CASCADE,
			step_number INTEGER NOT NULL,
			description TEXT NOT NULL,
			short_label TEXT NOT NULL,
			estimated_minutes INTEGER NOT NULL CHECK (estimated_minutes BETWEEN 2 AND 60),
			execution_mode TEXT NOT NULL DEFAULT 'human',
			delegation_mode TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL DEFAULT 0,
			is_leaf INTEGER NOT NULL DEFAULT 1,
			decomposition_state TEXT NOT NULL DEFAULT 'atomic',
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME,
			actual_minutes INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_steps_task ON steps(task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_steps_parent ON steps(parent_step_id);`,
		// COALESCE so top-level siblings (NULL parent) share one group.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_steps_sibling_number
			ON steps(task_id, COALESCE(parent_step_id, ''), step_number);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &StepStore{DB: db}, nil
}

func (s *StepStore) Close() error {
	return s.DB.Close()
}

// UpsertTask records the owning task. The decomposition core only needs the
// id and description; full task CRUD lives elsewhere.
func (s *StepStore) UpsertTask(id string, description string) error {
	query := `INSERT INTO tasks (id, description) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET description = excluded.description`
	_, err := s.DB.Exec(query, id, description)
	return err
}

func (s *StepStore) GetTask(id string) (*Task, error) {
	row := s.DB.QueryRow(`SELECT id, description, created_at FROM tasks WHERE id = ?`, id)
	var t Task
	if err := row.Scan(&t.ID, &t.Description, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes the task and, through the foreign keys, every step at
// every level under it.
func (s *StepStore) DeleteTask(id string) error {
	_, err := s.DB.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// DeleteStep removes a step and its whole subtree.
func (s *StepStore) DeleteStep(id string) error {
	_, err := s.DB.Exec(`DELETE FROM steps WHERE id = ?`, id)
	return err
}

const stepColumns = `id, task_id, COALESCE(parent_step_id, ''), step_number,
	description, short_label, estimated_minutes, execution_mode, delegation_mode,
	level, is_leaf, decomposition_state, completed, completed_at, actual_minutes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStep(r rowScanner) (*Step, error) {
	var st Step
	var completedAt sql.NullTime
	err := r.Scan(&st.ID, &st.TaskID, &st.ParentStepID, &st.StepNumber,
		&st.Description, &st.ShortLabel, &st.EstimatedMinutes, &st.ExecutionMode,
		&st.DelegationMode, &st.Level, &st.IsLeaf, &st.State, &st.Completed,
		&completedAt, &st.ActualMinutes)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		st.CompletedAt = &t
	}
	return &st, nil
}

func (s *StepStore) GetStep(id string) (*Step, error) {
	row := s.DB.QueryRow(`SELECT `+stepColumns+` FROM steps WHERE id = ?`, id)
	st, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("step %s: %w", id, ErrNotFound)
	}
	return st, err
}

func insertStepTx(tx *sql.Tx, st *Step) error {
	var parent any
	if st.ParentStepID != "" {
		parent = st.ParentStepID
	}
	_, err := tx.Exec(`INSERT INTO steps
		(id, task_id, parent_step_id, step_number, description, short_label,
		 estimated_minutes, execution_mode, delegation_mode, level, is_leaf,
		 decomposition_state, completed, actual_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		st.ID, st.TaskID, parent, st.StepNumber, st.Description, st.ShortLabel,
		st.EstimatedMinutes, st.ExecutionMode, st.DelegationMode, st.Level,
		st.IsLeaf, st.State)
	return err
}

// InsertTopLevel writes the initial split as one atomic batch.
func (s *StepStore) InsertTopLevel(steps []*Step) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	for _, st := range steps {
		if err := insertStepTx(tx, st); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// BeginDecomposition is the single-writer gate: the state flips to
// DECOMPOSING only if the step is still an undecomposed leaf. A false
// return means another call already won the step.
func (s *StepStore) BeginDecomposition(id string) (bool, error) {
	res, err := s.DB.Exec(`UPDATE steps SET decomposition_state = ?
		WHERE id = ? AND is_leaf = 1 AND decomposition_state IN (?, ?)`,
		StateDecomposing, id, StateStub, StateAtomic)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AbortDecomposition reverts a DECOMPOSING step to ATOMIC after a failed
// generation, leaving no trace of the attempt.
func (s *StepStore) AbortDecomposition(id string) error {
	_, err := s.DB.Exec(`UPDATE steps SET decomposition_state = ?
		WHERE id = ? AND decomposition_state = ?`,
		StateAtomic, id, StateDecomposing)
	return err
}

// InsertChildren writes the child batch and promotes the parent to
// DECOMPOSED in one transaction. Partial batches are never observable.
func (s *StepStore) InsertChildren(parentID string, children []*Step) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	for _, st := range children {
		if err := insertStepTx(tx, st); err != nil {
			tx.Rollback()
			return err
		}
	}
	res, err := tx.Exec(`UPDATE steps SET is_leaf = 0, decomposition_state = ?
		WHERE id = ? AND decomposition_state = ?`,
		StateDecomposed, parentID, StateDecomposing)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		tx.Rollback()
		if err != nil {
			return err
		}
		return fmt.Errorf("step %s is no longer decomposing: %w", parentID, ErrAlreadyAtomic)
	}
	return tx.Commit()
}

func (s *StepStore) querySteps(query string, args ...any) ([]*Step, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// TopLevel returns a task's level-0 steps ordered by step number.
func (s *StepStore) TopLevel(taskID string) ([]*Step, error) {
	return s.querySteps(`SELECT `+stepColumns+` FROM steps
		WHERE task_id = ? AND parent_step_id IS NULL
		ORDER BY step_number`, taskID)
}

// Children returns a step's direct children ordered by step number.
func (s *StepStore) Children(parentID string) ([]*Step, error) {
	return s.querySteps(`SELECT `+stepColumns+` FROM steps
		WHERE parent_step_id = ?
		ORDER BY step_number`, parentID)
}

// CountSteps counts every step of a task across all levels.
func (s *StepStore) CountSteps(taskID string) (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM steps WHERE task_id = ?`, taskID).Scan(&n)
	return n, err
}

// MarkCompleted records completion on a leaf. Non-leaf steps derive their
// completion from descendants and are rejected here.
func (s *StepStore) MarkCompleted(id string, actualMinutes int, at time.Time) error {
	res, err := s.DB.Exec(`UPDATE steps
		SET completed = 1, completed_at = ?, actual_minutes = ?
		WHERE id = ? AND is_leaf = 1`,
		at, actualMinutes, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetStep(id); err != nil {
		return err
	}
	return fmt.Errorf("step %s: %w", id, ErrNotALeaf)
}

// Stats aggregates completion over a task's leaf steps. Non-leaf steps stay
// out of the denominator; their completion is purely derived.
func (s *StepStore) Stats(taskID string) (TaskStats, error) {
	var st TaskStats
	err := s.DB.QueryRow(`SELECT COUNT(*),
			COALESCE(SUM(completed), 0),
			COALESCE(SUM(estimated_minutes), 0),
			COALESCE(SUM(CASE WHEN completed = 1 THEN actual_minutes ELSE 0 END), 0)
		FROM steps WHERE task_id = ? AND is_leaf = 1`, taskID).
		Scan(&st.Total, &st.Completed, &st.TotalEstimatedMinutes, &st.TotalActualMinutes)
	if err != nil {
		return st, err
	}
	if st.Total > 0 {
		st.Percent = 100 * float64(st.Completed) / float64(st.Total)
	}
	return st, nil
}

// SubtreeLeafCounts walks a step's subtree (itself included) and counts its
// leaves and completed leaves.
func (s *StepStore) SubtreeLeafCounts(stepID string) (total int, completed int, err error) {
	err = s.DB.QueryRow(`WITH RECURSIVE subtree(id) AS (
			SELECT id FROM steps WHERE id = ?
			UNION ALL
			SELECT s.id FROM steps s JOIN subtree t ON s.parent_step_id = t.id
		)
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM steps WHERE id IN (SELECT id FROM subtree) AND is_leaf = 1`,
		stepID).Scan(&total, &completed)
	return total, completed, err
}
