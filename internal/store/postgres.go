package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// Querier is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it, which is how the Postgres store is tested without a server.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Querier
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithQuerier wraps an existing querier. Tests use this with a
// pgxmock pool.
func NewPostgresWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{pool: q}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id TEXT NOT NULL UNIQUE,
	data         JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT 'DISCOVERY',
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interactions (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id   TEXT NOT NULL,
	opportunity_id TEXT,
	source         TEXT NOT NULL,
	type           TEXT NOT NULL,
	raw_content    TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'PENDING',
	classification TEXT,
	pipeline_log   JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS draft_responses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	opportunity_id TEXT NOT NULL,
	response_type  TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_interactions_status ON interactions(status);
CREATE INDEX IF NOT EXISTS idx_interactions_opportunity ON interactions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_candidate ON opportunities(candidate_id);
CREATE INDEX IF NOT EXISTS idx_drafts_opportunity ON draft_responses(opportunity_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) CreateInteraction(ctx context.Context, i *model.Interaction) error {
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO interactions (id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		i.ID, i.CandidateID, nullable(i.OpportunityID), string(i.Source), string(i.Type),
		i.RawContent, string(i.Status), nullable(string(i.Classification)), logJSON, i.CreatedAt, i.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert interaction")
}

func (s *PostgresStore) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE id = $1`,
		id,
	)
	return scanInteractionPgx(row)
}

func (s *PostgresStore) UpdateInteraction(ctx context.Context, i *model.Interaction) error {
	logJSON, err := marshalStepLog(i.PipelineLog)
	if err != nil {
		return err
	}
	i.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE interactions SET status = $1, classification = $2, pipeline_log = $3, updated_at = $4 WHERE id = $5`,
		string(i.Status), nullable(string(i.Classification)), logJSON, i.UpdatedAt, i.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update interaction %s", i.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("interaction not found: %s", i.ID)
	}
	return nil
}

func (s *PostgresStore) ListPendingInteractions(ctx context.Context) ([]model.Interaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE status = $1 ORDER BY created_at ASC`,
		string(model.StatusPending),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending interactions")
	}
	defer rows.Close()
	return collectInteractionsPgx(rows)
}

func (s *PostgresStore) ListRecruiterMessages(ctx context.Context, opportunityID string) ([]model.Interaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, opportunity_id, source, type, raw_content, status, classification, pipeline_log, created_at, updated_at
		 FROM interactions WHERE opportunity_id = $1 AND type = ANY($2) ORDER BY created_at ASC`,
		opportunityID, []string{string(model.InteractionInitial), string(model.InteractionFollowUp)},
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recruiter messages")
	}
	defer rows.Close()
	return collectInteractionsPgx(rows)
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
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
		return eris.Wrap(err, "postgres: marshal opportunity")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO opportunities (id, candidate_id, stage, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CandidateID, string(o.Stage), data, o.CreatedAt, o.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert opportunity")
}

func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM opportunities WHERE id = $1`, id,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("opportunity not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get opportunity")
	}
	var o model.Opportunity
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal opportunity")
	}
	return &o, nil
}

func (s *PostgresStore) UpdateOpportunity(ctx context.Context, o *model.Opportunity) error {
	o.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal opportunity")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET stage = $1, data = $2, updated_at = $3 WHERE id = $4`,
		string(o.Stage), data, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update opportunity %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("opportunity not found: %s", o.ID)
	}
	return nil
}

func (s *PostgresStore) GetProfileByCandidate(ctx context.Context, candidateID string) (*model.Profile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM profiles WHERE candidate_id = $1`, candidateID,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("profile not found for candidate %s", candidateID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO profiles (id, candidate_id, data, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		p.ID, p.CandidateID, data, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save profile")
}

func (s *PostgresStore) SaveDraft(ctx context.Context, d *model.DraftResponse) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO draft_responses (id, opportunity_id, response_type, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.OpportunityID, string(d.ResponseType), d.Content, d.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert draft")
}

func (s *PostgresStore) ListDrafts(ctx context.Context, opportunityID string) ([]model.DraftResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, opportunity_id, response_type, content, created_at
		 FROM draft_responses WHERE opportunity_id = $1 ORDER BY created_at DESC`,
		opportunityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list drafts")
	}
	defer rows.Close()

	var drafts []model.DraftResponse
	for rows.Next() {
		var d model.DraftResponse
		var rt string
		if err := rows.Scan(&d.ID, &d.OpportunityID, &rt, &d.Content, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan draft")
		}
		d.ResponseType = model.ResponseType(rt)
		drafts = append(drafts, d)
	}
	return drafts, eris.Wrap(rows.Err(), "postgres: list drafts iterate")
}

// helpers

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanInteractionPgx(row pgx.Row) (*model.Interaction, error) {
	var i model.Interaction
	var oppID, classification *string
	var source, typ, status string
	var logJSON []byte

	err := row.Scan(&i.ID, &i.CandidateID, &oppID, &source, &typ, &i.RawContent,
		&status, &classification, &logJSON, &i.CreatedAt, &i.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.New("interaction not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan interaction")
	}

	if oppID != nil {
		i.OpportunityID = *oppID
	}
	if classification != nil {
		i.Classification = model.Classification(*classification)
	}
	i.Source = model.InteractionSource(source)
	i.Type = model.InteractionType(typ)
	i.Status = model.ProcessingStatus(status)
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &i.PipelineLog); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal pipeline log")
		}
	}
	return &i, nil
}

func collectInteractionsPgx(rows pgx.Rows) ([]model.Interaction, error) {
	var out []model.Interaction
	for rows.Next() {
		i, err := scanInteractionPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate interactions")
}
