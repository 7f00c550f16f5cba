package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// AuditStore keeps the remediation log and poll history in a SQLite database.
type AuditStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewAuditStore opens (creating if needed) the database at path and ensures the schema.
func NewAuditStore(path string, logger zerolog.Logger) (*AuditStore, error) {
	logger = logger.With().Str("component", "AuditStore").Logger()
	logger.Info().Str("db_path", path).Msg("Initializing audit database connection")

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error().Err(err).Str("directory", dbDir).Msg("Failed to create audit database directory")
		return nil, fmt.Errorf("failed to create audit database directory %s: %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error().Err(err).Str("db_path", path).Msg("Failed to open audit database")
		return nil, fmt.Errorf("sql.Open failed for %s: %w", path, err)
	}
	// one writer; sqlite serializes anyway
	dbInstance.SetMaxOpenConns(1)

	store := &AuditStore{
		db:     dbInstance,
		logger: logger,
	}

	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info().Str("path", path).Msg("Audit database initialized and schema verified")
	return store, nil
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema creates the remediation_log and poll_history tables if they don't already exist.
func (s *AuditStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS remediation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_kind TEXT NOT NULL,
		source_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		author_id TEXT,
		outcome TEXT NOT NULL,
		state TEXT NOT NULL,
		error TEXT,
		occurred_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_remediation_log_item ON remediation_log (source_id, item_id);
	CREATE TABLE IF NOT EXISTS poll_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick_id TEXT NOT NULL,
		source_kind TEXT NOT NULL,
		source_id TEXT NOT NULL,
		window_start DATETIME NOT NULL,
		tick_start DATETIME NOT NULL,
		item_count INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		s.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	s.logger.Debug().Msg("Schema initialized (remediation_log, poll_history)")
	return nil
}

// RecordRemediation appends one remediation attempt to the log.
func (s *AuditStore) RecordRemediation(ctx context.Context, event models.RemediationEvent) error {
	query := `INSERT INTO remediation_log (source_kind, source_id, item_id, author_id, outcome, state, error, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		string(event.Source.Kind),
		event.Source.ID,
		event.ItemID,
		nullString(event.AuthorID),
		string(event.Result.Outcome),
		string(event.Result.State),
		nullString(event.Error),
		event.OccurredAt.UTC(),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", event.ItemID).Msg("Failed to record remediation")
		return fmt.Errorf("failed to insert remediation record: %w", err)
	}
	return nil
}

// RecordPoll appends one source's poll result to the history.
func (s *AuditStore) RecordPoll(ctx context.Context, summary models.PollSummary) error {
	query := `INSERT INTO poll_history (tick_id, source_kind, source_id, window_start, tick_start, item_count, status, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		summary.TickID,
		string(summary.Source.Kind),
		summary.Source.ID,
		summary.WindowStart.UTC(),
		summary.TickStart.UTC(),
		summary.ItemCount,
		string(summary.Status),
		nullString(summary.Error),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("source", summary.Source.Key()).Msg("Failed to record poll")
		return fmt.Errorf("failed to insert poll record: %w", err)
	}
	return nil
}

// RecentRemediations returns up to limit remediation records, newest first.
func (s *AuditStore) RecentRemediations(ctx context.Context, limit int) ([]models.RemediationEvent, error) {
	query := `SELECT source_kind, source_id, item_id, author_id, outcome, state, error, occurred_at FROM remediation_log ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query remediation log: %w", err)
	}
	defer rows.Close()

	var events []models.RemediationEvent
	for rows.Next() {
		var (
			event              models.RemediationEvent
			kind, outcome, st  string
			authorID, errorMsg sql.NullString
		)
		if err := rows.Scan(&kind, &event.Source.ID, &event.ItemID, &authorID, &outcome, &st, &errorMsg, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan remediation record: %w", err)
		}
		event.Source.Kind = models.SourceKind(kind)
		event.Source.Name = event.Source.ID
		event.AuthorID = authorID.String
		event.Result = models.RemediationResult{Outcome: models.Outcome(outcome), State: models.ItemState(st)}
		event.Error = errorMsg.String
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
