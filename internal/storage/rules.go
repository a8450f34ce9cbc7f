package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// ErrRuleNotFound is returned when a rule id does not exist.
var ErrRuleNotFound = errors.New("rule not found")

const ruleColumns = `id, name, description, enabled, logic_operator,
	conditions, actions, execution_count, last_executed, created_at, last_modified`

// SaveRule inserts or updates a rule. A missing id is generated; validation
// of every action runs before anything is written so malformed rules never
// reach the engine.
func (s *Store) SaveRule(ctx context.Context, r *rules.Rule) error {
	for _, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.LogicOperator == "" {
		r.LogicOperator = rules.LogicAnd
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.LastModified = now

	conds, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}

	var lastExecuted any
	if r.LastExecuted != nil {
		lastExecuted = formatTime(*r.LastExecuted)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			logic_operator = excluded.logic_operator,
			conditions = excluded.conditions,
			actions = excluded.actions,
			last_modified = excluded.last_modified`,
		r.ID, r.Name, r.Description, r.Enabled, string(r.LogicOperator),
		string(conds), string(actions), r.ExecutionCount, lastExecuted,
		formatTime(r.CreatedAt), formatTime(r.LastModified))
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// GetRule fetches one rule by id.
func (s *Store) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRules returns every stored rule, enabled or not, ordered by creation
// time.
func (s *Store) ListRules(ctx context.Context) ([]rules.Rule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY created_at, id`)
}

// ListEnabled returns only the enabled rules, in creation order. This is the
// engine's view of the rule set.
func (s *Store) ListEnabled(ctx context.Context) ([]rules.Rule, error) {
	return s.listRules(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE enabled = 1 ORDER BY created_at, id`)
}

func (s *Store) listRules(ctx context.Context, query string) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// SetRuleEnabled toggles a rule without touching its definition.
func (s *Store) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET enabled = ?, last_modified = ? WHERE id = ?`,
		enabled, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to toggle rule: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteRule removes a rule permanently.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRowAffected(res)
}

// IncrementExecutionCount bumps a rule's execution counter and records when
// it last fired.
func (s *Store) IncrementExecutionCount(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET execution_count = execution_count + 1, last_executed = ? WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to increment execution count: %w", err)
	}
	return requireRowAffected(res)
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*rules.Rule, error) {
	var (
		r            rules.Rule
		logicOp      string
		conds        string
		actions      string
		lastExecuted sql.NullString
		createdAt    string
		lastModified string
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Enabled, &logicOp,
		&conds, &actions, &r.ExecutionCount, &lastExecuted, &createdAt, &lastModified)
	if err != nil {
		return nil, err
	}

	r.LogicOperator = rules.LogicOperator(logicOp)
	if err := json.Unmarshal([]byte(conds), &r.Conditions); err != nil {
		return nil, fmt.Errorf("rule %s: failed to decode conditions: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
		return nil, fmt.Errorf("rule %s: failed to decode actions: %w", r.ID, err)
	}
	if lastExecuted.Valid {
		t, err := parseTime(lastExecuted.String)
		if err != nil {
			return nil, fmt.Errorf("rule %s: bad last_executed: %w", r.ID, err)
		}
		r.LastExecuted = &t
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("rule %s: bad created_at: %w", r.ID, err)
	}
	if r.LastModified, err = parseTime(lastModified); err != nil {
		return nil, fmt.Errorf("rule %s: bad last_modified: %w", r.ID, err)
	}
	return &r, nil
}
