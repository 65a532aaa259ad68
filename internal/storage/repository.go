package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"horeca/internal/core"
	"horeca/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", log.FieldComponent, log.ComponentStorage, "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertRawRecord stores one raw observation. Re-inserting the same
// (source, kind, external_id) replaces the earlier copy.
func (r *SQLiteRepository) InsertRawRecord(ctx context.Context, rec core.RawRecord) (int64, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	if rec.Payload == nil {
		payload = []byte("{}")
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO raw_records (source, kind, date, external_id, location_id, team_id, participant_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, kind, external_id) DO UPDATE SET
			date = excluded.date,
			location_id = excluded.location_id,
			team_id = excluded.team_id,
			participant_id = excluded.participant_id,
			payload = excluded.payload
		RETURNING id`,
		rec.Source, string(rec.Kind), rec.Date, rec.ExternalID,
		rec.LocationID, rec.TeamID, rec.ParticipantID, string(payload),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert raw record: %w", err)
	}
	return id, nil
}

// ListRawRecords returns records of the given kinds within rng, in insertion
// order. Location and team filters also keep records whose envelope leaves
// the field empty, since the payload may still carry it.
func (r *SQLiteRepository) ListRawRecords(ctx context.Context, kinds []core.RecordKind, rng core.DateRange, f core.Filter) ([]core.RawRecord, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT id, source, kind, date, external_id, location_id, team_id, participant_id, payload
		FROM raw_records WHERE kind IN (`)
	for i, k := range kinds {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString("?")
		args = append(args, string(k))
	}
	query.WriteString(") AND date BETWEEN ? AND ?")
	args = append(args, rng.From, rng.To)
	if f.LocationID != "" {
		query.WriteString(" AND (location_id = ? OR location_id = '')")
		args = append(args, f.LocationID)
	}
	if f.TeamID != "" {
		query.WriteString(" AND (team_id = ? OR team_id = '')")
		args = append(args, f.TeamID)
	}
	query.WriteString(" ORDER BY id")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query raw records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		var (
			rec     core.RawRecord
			kind    string
			payload string
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &kind, &rec.Date, &rec.ExternalID,
			&rec.LocationID, &rec.TeamID, &rec.ParticipantID, &payload); err != nil {
			return nil, fmt.Errorf("scan raw record: %w", err)
		}
		rec.Kind = core.RecordKind(kind)
		rec.Payload = decodePayload(ctx, rec.ID, payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw records: %w", err)
	}
	return out, nil
}

func decodePayload(ctx context.Context, id int64, raw string) core.Payload {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var p core.Payload
	if err := dec.Decode(&p); err != nil {
		slog.WarnContext(ctx, "Unreadable raw record payload, treating as empty", log.FieldComponent, log.ComponentStorage, "id", id, "error", err)
		return core.Payload{}
	}
	return p
}

// InsertLedgerEntries stores ledger lines in one transaction.
func (r *SQLiteRepository) InsertLedgerEntries(ctx context.Context, entries []core.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (location_id, year, month, category, subcategory, gl_account, amount_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.LocationID, e.Year, e.Month, e.Category, e.Subcategory, e.GLAccount, e.Amount.Cents); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger entries: %w", err)
	}
	return nil
}

// ListLedgerEntries implements sources.LedgerReader
func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context, locationID string, year, month int) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT location_id, year, month, category, subcategory, gl_account, amount_cents
		FROM ledger_entries
		WHERE location_id = ? AND year = ? AND month = ?
		ORDER BY id`, locationID, year, month)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		if err := rows.Scan(&e.LocationID, &e.Year, &e.Month, &e.Category, &e.Subcategory, &e.GLAccount, &e.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

// ListLedgerLocations implements sources.LedgerLocationLister
func (r *SQLiteRepository) ListLedgerLocations(ctx context.Context, year, month int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT location_id FROM ledger_entries
		WHERE year = ? AND month = ?
		ORDER BY location_id`, year, month)
	if err != nil {
		return nil, fmt.Errorf("query ledger locations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("scan ledger location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
