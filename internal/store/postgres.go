package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/db"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// PostgresStore implements Store on pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects a pgx pool to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, primarily for tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                       BIGINT PRIMARY KEY,
	company_name             TEXT NOT NULL,
	cae_primary_label        TEXT,
	trade_description_native TEXT,
	website                  TEXT,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS incentives (
	id                        BIGINT PRIMARY KEY,
	incentive_project_id      TEXT,
	title                     TEXT NOT NULL,
	description               TEXT,
	ai_description            TEXT,
	ai_description_structured JSONB,
	eligibility_criteria      JSONB,
	total_budget              DOUBLE PRECISION,
	date_publication          DATE,
	date_start                DATE,
	date_end                  DATE,
	source_link               TEXT,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	incentive_id  BIGINT NOT NULL REFERENCES incentives(id),
	company_id    BIGINT NOT NULL REFERENCES companies(id),
	score         DOUBLE PRECISION NOT NULL,
	rank_position INTEGER NOT NULL CHECK (rank_position BETWEEN 1 AND 5),
	reasoning     JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (incentive_id, company_id),
	UNIQUE (incentive_id, rank_position)
);

CREATE INDEX IF NOT EXISTS idx_matches_incentive ON matches(incentive_id, rank_position);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "store: postgres migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_name, COALESCE(cae_primary_label, ''),
		       COALESCE(trade_description_native, ''), COALESCE(website, '')
		FROM companies
		ORDER BY id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "store: query companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CAELabel, &c.TradeDescription, &c.Website); err != nil {
			return nil, eris.Wrap(err, "store: scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate companies")
}

const incentiveColumns = `
	id, COALESCE(incentive_project_id, ''), title, COALESCE(description, ''),
	COALESCE(ai_description, ''), ai_description_structured, eligibility_criteria,
	COALESCE(total_budget, 0), date_publication, date_start, date_end,
	COALESCE(source_link, '')`

func scanIncentive(row pgx.Row) (*model.Incentive, error) {
	var (
		inc        model.Incentive
		structured []byte
		criteria   []byte
	)
	err := row.Scan(
		&inc.ID, &inc.IncentiveProjectID, &inc.Title, &inc.Description,
		&inc.AIDescription, &structured, &criteria,
		&inc.TotalBudget, &inc.DatePublication, &inc.DateStart, &inc.DateEnd,
		&inc.SourceLink,
	)
	if err != nil {
		return nil, err
	}
	inc.Structured = model.ParseStructured(structured)
	inc.EligibilityCriteria = model.ParseEligibility(criteria)
	return &inc, nil
}

func (s *PostgresStore) ListIncentives(ctx context.Context) ([]model.Incentive, error) {
	return s.queryIncentives(ctx, `SELECT `+incentiveColumns+` FROM incentives ORDER BY id`)
}

func (s *PostgresStore) IncentivesMissingMatches(ctx context.Context) ([]model.Incentive, error) {
	return s.queryIncentives(ctx, `
		SELECT `+incentiveColumns+`
		FROM incentives i
		WHERE NOT EXISTS (SELECT 1 FROM matches m WHERE m.incentive_id = i.id)
		ORDER BY id
	`)
}

func (s *PostgresStore) queryIncentives(ctx context.Context, sql string) ([]model.Incentive, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "store: query incentives")
	}
	defer rows.Close()

	var out []model.Incentive
	for rows.Next() {
		inc, err := scanIncentive(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan incentive")
		}
		out = append(out, *inc)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate incentives")
}

func (s *PostgresStore) GetIncentive(ctx context.Context, id int64) (*model.Incentive, error) {
	inc, err := scanIncentive(s.pool.QueryRow(ctx,
		`SELECT `+incentiveColumns+` FROM incentives WHERE id = $1`, id))
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "store: incentive %d", id)
		}
		return nil, eris.Wrapf(err, "store: get incentive %d", id)
	}
	return inc, nil
}

// ReplaceMatches swaps the whole match set for one incentive inside a single
// transaction. The delete and inserts commit together or not at all, so a
// failed replace never mixes stale and fresh rows.
func (s *PostgresStore) ReplaceMatches(ctx context.Context, incentiveID int64, matches []model.Match) error {
	if err := model.ValidateMatchSet(matches); err != nil {
		return eris.Wrapf(err, "store: replace matches for incentive %d", incentiveID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: begin replace matches")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM matches WHERE incentive_id = $1`, incentiveID); err != nil {
		return eris.Wrapf(err, "store: clear matches for incentive %d", incentiveID)
	}

	for _, m := range matches {
		reasoning, err := json.Marshal(m.Reasoning)
		if err != nil {
			return eris.Wrapf(err, "store: marshal reasoning for company %d", m.CompanyID)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO matches (incentive_id, company_id, score, rank_position, reasoning)
			VALUES ($1, $2, $3, $4, $5)
		`, incentiveID, m.CompanyID, m.Score, m.RankPosition, reasoning)
		if err != nil {
			return eris.Wrapf(err, "store: insert match rank %d for incentive %d", m.RankPosition, incentiveID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "store: commit matches for incentive %d", incentiveID)
	}

	zap.L().Info("store: replaced matches",
		zap.Int64("incentive_id", incentiveID),
		zap.Int("count", len(matches)),
	)
	return nil
}

func (s *PostgresStore) MatchesForIncentive(ctx context.Context, incentiveID int64) ([]model.Match, error) {
	return s.queryMatches(ctx, `
		SELECT incentive_id, company_id, score, rank_position, reasoning
		FROM matches WHERE incentive_id = $1
		ORDER BY rank_position
	`, incentiveID)
}

func (s *PostgresStore) AllMatches(ctx context.Context) ([]model.Match, error) {
	return s.queryMatches(ctx, `
		SELECT incentive_id, company_id, score, rank_position, reasoning
		FROM matches
		ORDER BY incentive_id, rank_position
	`)
}

func (s *PostgresStore) queryMatches(ctx context.Context, sql string, args ...any) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: query matches")
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			m         model.Match
			reasoning []byte
		)
		if err := rows.Scan(&m.IncentiveID, &m.CompanyID, &m.Score, &m.RankPosition, &reasoning); err != nil {
			return nil, eris.Wrap(err, "store: scan match")
		}
		if len(reasoning) > 0 {
			if err := json.Unmarshal(reasoning, &m.Reasoning); err != nil {
				return nil, eris.Wrapf(err, "store: unmarshal reasoning for company %d", m.CompanyID)
			}
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate matches")
}

func (s *PostgresStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	rows := make([][]any, len(companies))
	for i, c := range companies {
		rows[i] = []any{c.ID, c.Name, c.CAELabel, c.TradeDescription, c.Website}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "companies",
		Columns:      []string{"id", "company_name", "cae_primary_label", "trade_description_native", "website"},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "store: upsert companies")
}

func (s *PostgresStore) UpsertIncentives(ctx context.Context, incentives []model.Incentive) (int64, error) {
	rows := make([][]any, 0, len(incentives))
	for _, inc := range incentives {
		structured, err := marshalStructured(inc.Structured)
		if err != nil {
			return 0, eris.Wrapf(err, "store: marshal structured description for incentive %d", inc.ID)
		}
		criteria, err := marshalCriteria(inc.EligibilityCriteria)
		if err != nil {
			return 0, eris.Wrapf(err, "store: marshal eligibility for incentive %d", inc.ID)
		}
		rows = append(rows, []any{
			inc.ID, inc.IncentiveProjectID, inc.Title, inc.Description,
			inc.AIDescription, structured, criteria, inc.TotalBudget,
			inc.DatePublication, inc.DateStart, inc.DateEnd, inc.SourceLink,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "incentives",
		Columns: []string{
			"id", "incentive_project_id", "title", "description",
			"ai_description", "ai_description_structured", "eligibility_criteria",
			"total_budget", "date_publication", "date_start", "date_end", "source_link",
		},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "store: upsert incentives")
}

func marshalStructured(s *model.StructuredDescription) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func marshalCriteria(c map[string]string) ([]byte, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return json.Marshal(c)
}
