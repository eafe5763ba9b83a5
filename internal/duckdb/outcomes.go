package duckdb

import (
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// InsertOutcomeBatch appends outcomes in a single transaction.
func (s *Store) InsertOutcomeBatch(outcomes []*model.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO card_outcomes (card_id, title, ok, error, trigger_kind, started_at, duration_us) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		trigger := o.Trigger
		if trigger == "" {
			trigger = model.TriggerManual
		}
		if _, err := stmt.ExecContext(ctx,
			o.CardID, o.Title, o.OK, o.Error, string(trigger),
			o.StartedAt.UTC(), o.Duration.Microseconds(),
		); err != nil {
			return fmt.Errorf("outcome insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RecentOutcomes returns the newest outcomes first. An empty cardID matches
// every card; a non-positive limit falls back to model.DefaultHistoryLimit.
func (s *Store) RecentOutcomes(cardID string, limit int) ([]model.Outcome, error) {
	if limit <= 0 {
		limit = model.DefaultHistoryLimit
	}

	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT card_id, title, ok, error, trigger_kind, started_at, duration_us FROM card_outcomes`
	args := []any{}
	if cardID != "" {
		query += ` WHERE card_id = ?`
		args = append(args, cardID)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Outcome
	for rows.Next() {
		var (
			o       model.Outcome
			trigger string
			durUS   int64
		)
		if err := rows.Scan(&o.CardID, &o.Title, &o.OK, &o.Error, &trigger, &o.StartedAt, &durUS); err != nil {
			return nil, err
		}
		o.Trigger = model.Trigger(trigger)
		o.Duration = time.Duration(durUS) * time.Microsecond
		out = append(out, o)
	}
	return out, rows.Err()
}

// OutcomeSummary aggregates stored outcomes per card, ordered by card id.
func (s *Store) OutcomeSummary() ([]model.CardSummary, error) {
	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id,
		       arg_max(title, started_at),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE NOT ok),
		       AVG(duration_us),
		       MAX(started_at)
		FROM card_outcomes
		GROUP BY card_id
		ORDER BY card_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CardSummary
	for rows.Next() {
		var (
			cs    model.CardSummary
			avgUS float64
		)
		if err := rows.Scan(&cs.CardID, &cs.Title, &cs.Runs, &cs.Failures, &avgUS, &cs.LastRunAt); err != nil {
			return nil, err
		}
		cs.AvgDuration = time.Duration(avgUS) * time.Microsecond
		out = append(out, cs)
	}
	return out, rows.Err()
}

// TotalOutcomes counts every stored outcome.
func (s *Store) TotalOutcomes() (int64, error) {
	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_outcomes`).Scan(&n)
	return n, err
}

// DeleteBefore removes outcomes that started before cutoff.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM card_outcomes WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("duckdb: rows affected unavailable: %v", err)
		return 0, nil
	}
	return n, nil
}

// TrimPerCard keeps the newest keep outcomes of every card and deletes the
// rest.
func (s *Store) TrimPerCard(keep int) (int64, error) {
	ctx, cancel := s.queryContext()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM card_outcomes
		WHERE id IN (
			SELECT id FROM card_outcomes
			QUALIFY row_number() OVER (PARTITION BY card_id ORDER BY started_at DESC, id DESC) > ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("duckdb: rows affected unavailable: %v", err)
		return 0, nil
	}
	return n, nil
}

var (
	_ model.OutcomeWriter = (*Store)(nil)
	_ model.OutcomeReader = (*Store)(nil)
)
