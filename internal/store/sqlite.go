package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// A ":memory:" dsn yields an in-process throwaway database.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL UNIQUE,
	data         TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT 'DISCOVERY',
	data         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS interactions (
	id             TEXT PRIMARY KEY,
	candidate_id   TEXT NOT NULL,
	opportunity_id TEXT,
	source         TEXT NOT NULL,
	type           TEXT NOT NULL,
	raw_content    TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'PENDING',
	classification TEXT,
	pipeline_log   TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS draft_responses (
	id             TEXT PRIMARY KEY,
	opportunity_id TEXT NOT NULL,
	response_type  TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_interactions_status ON interactions(status);
CREATE INDEX IF NOT EXISTS idx_interactions_opportunity ON interactions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_candidate ON opportunities(candidate_id);
CREATE INDEX IF NOT EXISTS idx_drafts_opportunity ON draft_responses(opportunity_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateInteraction(ctx context.Context, i *model.Interaction) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
	if i.Status == "" {
		i.Status = model.StatusPending
	}

	logJSON, err := marshalStepLog(i.PipelineLog)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CandidateID, nullString(i.OpportunityID), string(i.Source), string(i.Type),
		i.RawContent, string(i.Status), nullString(string(i.Classification)), logJSON, i.CreatedAt, i.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert interaction")
}

func (s *SQLiteStore) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE id = ?`,
		id,
	)
	return scanInteraction(row)
}

func (s *SQLiteStore) UpdateInteraction(ctx context.Context, i *model.Interaction) error {
	logJSON, err := marshalStepLog(i.PipelineLog)
	if err != nil {
		return err
	}
	i.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE interactions SET status = ?, classification = ?, pipeline_log = ?, updated_at = ? WHERE id = ?`,
		string(i.Status), nullString(string(i.Classification)), logJSON, i.UpdatedAt, i.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update interaction %s", i.ID)
	}
	return checkRowsAffected(res, "interaction", i.ID)
}

func (s *SQLiteStore) ListPendingInteractions(ctx context.Context) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE status = ? ORDER BY created_at ASC`,
		string(model.StatusPending),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending interactions")
	}
	defer rows.Close()
	return collectInteractions(rows)
}

func (s *SQLiteStore) ListRecruiterMessages(ctx context.Context, opportunityID string) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE opportunity_id = ? AND type IN (?, ?) ORDER BY created_at ASC`,
		opportunityID, string(model.InteractionInitial), string(model.InteractionFollowUp),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recruiter messages")
	}
	defer rows.Close()
	return collectInteractions(rows)
}

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Stage == "" {
		o.Stage = model.StageDiscovery
	}

	data, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal opportunity")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, candidate_id, stage, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.CandidateID, string(o.Stage), string(data), o.CreatedAt, o.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert opportunity")
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM opportunities WHERE id = ?`, id,
	)
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("opportunity not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get opportunity")
	}
	var o model.Opportunity
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal opportunity")
	}
	return &o, nil
}

func (s *SQLiteStore) UpdateOpportunity(ctx context.Context, o *model.Opportunity) error {
	o.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal opportunity")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET stage = ?, data = ?, updated_at = ? WHERE id = ?`,
		string(o.Stage), string(data), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update opportunity %s", o.ID)
	}
	return checkRowsAffected(res, "opportunity", o.ID)
}

func (s *SQLiteStore) GetProfileByCandidate(ctx context.Context, candidateID string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE candidate_id = ?`, candidateID,
	)
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("profile not found for candidate %s", candidateID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, candidate_id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(candidate_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.ID, p.CandidateID, string(data), p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save profile")
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, d *model.DraftResponse) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_responses (id, opportunity_id, response_type, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.OpportunityID, string(d.ResponseType), d.Content, d.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert draft")
}

func (s *SQLiteStore) ListDrafts(ctx context.Context, opportunityID string) ([]model.DraftResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, opportunity_id, response_type, content, created_at
		 FROM draft_responses WHERE opportunity_id = ? ORDER BY created_at DESC`,
		opportunityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list drafts")
	}
	defer rows.Close()

	var drafts []model.DraftResponse
	for rows.Next() {
		var d model.DraftResponse
		var rt string
		if err := rows.Scan(&d.ID, &d.OpportunityID, &rt, &d.Content, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan draft")
		}
		d.ResponseType = model.ResponseType(rt)
		drafts = append(drafts, d)
	}
	return drafts, eris.Wrap(rows.Err(), "sqlite: list drafts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalStepLog(log []model.StepLog) (string, error) {
	if len(log) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(log)
	if err != nil {
		return "", eris.Wrap(err, "marshal pipeline log")
	}
	return string(b), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanInteraction(row scannable) (*model.Interaction, error) {
	var i model.Interaction
	var oppID, classification sql.NullString
	var source, typ, status, logJSON string

	err := row.Scan(&i.ID, &i.CandidateID, &oppID, &source, &typ, &i.RawContent,
		&status, &classification, &logJSON, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("interaction not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan interaction")
	}

	i.OpportunityID = oppID.String
	i.Source = model.InteractionSource(source)
	i.Type = model.InteractionType(typ)
	i.Status = model.ProcessingStatus(status)
	i.Classification = model.Classification(classification.String)
	if logJSON != "" {
		if err := json.Unmarshal([]byte(logJSON), &i.PipelineLog); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal pipeline log")
		}
	}
	return &i, nil
}

func collectInteractions(rows *sql.Rows) ([]model.Interaction, error) {
	var out []model.Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate interactions")
}
