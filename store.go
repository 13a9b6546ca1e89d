package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the document persistence layer: get-by-key reads and whole-document
// writes, keyed by user plus date (daily logs), week start (schedules), or
// report id. A read miss returns the zero document and a nil error; only
// infrastructure failures surface as errors.
type Store interface {
	GetDailyLog(ctx context.Context, userID int, date string) (dailyLog, error)
	PutDailyLog(ctx context.Context, userID int, log dailyLog) error

	GetSchedule(ctx context.Context, userID int, weekStart string) (weekSchedule, error)
	PutSchedule(ctx context.Context, userID int, weekStart string, sched weekSchedule) error

	GetProfile(ctx context.Context, userID int) (profile, error)
	PutProfile(ctx context.Context, userID int, p profile) error

	SaveReport(ctx context.Context, userID int, report weeklyReport) (string, error)
	ListReports(ctx context.Context, userID, limit int) ([]weeklyReport, error)
}

// postgresStore keeps each record as a whole JSONB document, matching the
// single-whole-document write granularity the rest of the system assumes.
type postgresStore struct {
	db *pgxpool.Pool
}

func newPostgresStore(db *pgxpool.Pool) *postgresStore {
	return &postgresStore{db: db}
}

// getDoc reads one JSONB document into out. Returns false when the row is absent.
func (s *postgresStore) getDoc(ctx context.Context, sql string, args pgx.NamedArgs, out interface{}) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, sql, args).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	return true, nil
}

// putDoc upserts one JSONB document.
func (s *postgresStore) putDoc(ctx context.Context, sql string, args pgx.NamedArgs, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	args["doc"] = raw
	if _, err := s.db.Exec(ctx, sql, args); err != nil {
		return err
	}
	return nil
}

func (s *postgresStore) GetDailyLog(ctx context.Context, userID int, date string) (dailyLog, error) {
	var l dailyLog
	_, err := s.getDoc(ctx,
		"SELECT doc FROM daily_logs WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": date}, &l)
	if err != nil {
		return dailyLog{}, err
	}
	normalizeDailyLog(&l, date)
	return l, nil
}

func (s *postgresStore) PutDailyLog(ctx context.Context, userID int, log dailyLog) error {
	return s.putDoc(ctx,
		`INSERT INTO daily_logs (user_id, date, doc)
		 VALUES (@userID, @date, @doc::jsonb)
		 ON CONFLICT (user_id, date) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		pgx.NamedArgs{"userID": userID, "date": log.Date}, log)
}

func (s *postgresStore) GetSchedule(ctx context.Context, userID int, weekStart string) (weekSchedule, error) {
	var sched weekSchedule
	_, err := s.getDoc(ctx,
		"SELECT doc FROM weekly_schedules WHERE user_id = @userID AND week_start = @weekStart",
		pgx.NamedArgs{"userID": userID, "weekStart": weekStart}, &sched)
	if err != nil {
		return nil, err
	}
	return normalizeSchedule(sched), nil
}

func (s *postgresStore) PutSchedule(ctx context.Context, userID int, weekStart string, sched weekSchedule) error {
	return s.putDoc(ctx,
		`INSERT INTO weekly_schedules (user_id, week_start, doc)
		 VALUES (@userID, @weekStart, @doc::jsonb)
		 ON CONFLICT (user_id, week_start) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		pgx.NamedArgs{"userID": userID, "weekStart": weekStart}, sched)
}

func (s *postgresStore) GetProfile(ctx context.Context, userID int) (profile, error) {
	var p profile
	_, err := s.getDoc(ctx,
		"SELECT doc FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID}, &p)
	if err != nil {
		return profile{}, err
	}
	applyProfileDefaults(&p)
	return p, nil
}

func (s *postgresStore) PutProfile(ctx context.Context, userID int, p profile) error {
	return s.putDoc(ctx,
		`INSERT INTO profiles (user_id, doc)
		 VALUES (@userID, @doc::jsonb)
		 ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		pgx.NamedArgs{"userID": userID}, p)
}

// SaveReport stores the report under its "<year>-W<week>" id; regenerating a
// week's report overwrites the previous one.
func (s *postgresStore) SaveReport(ctx context.Context, userID int, report weeklyReport) (string, error) {
	id := fmt.Sprintf("%d-W%d", report.Year, report.WeekNumber)
	report.ID = id
	err := s.putDoc(ctx,
		`INSERT INTO weekly_reports (user_id, report_id, doc)
		 VALUES (@userID, @reportID, @doc::jsonb)
		 ON CONFLICT (user_id, report_id) DO UPDATE SET doc = EXCLUDED.doc, created_at = now()`,
		pgx.NamedArgs{"userID": userID, "reportID": id}, report)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *postgresStore) ListReports(ctx context.Context, userID, limit int) ([]weeklyReport, error) {
	rows, err := s.db.Query(ctx,
		`SELECT report_id, doc FROM weekly_reports
		 WHERE user_id = @userID
		 ORDER BY created_at DESC
		 LIMIT @limit`,
		pgx.NamedArgs{"userID": userID, "limit": limit})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []weeklyReport{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var r weeklyReport
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", id, err)
		}
		r.ID = id
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
