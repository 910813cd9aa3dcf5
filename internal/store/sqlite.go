package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs
// without a PostgreSQL instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "store: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                       INTEGER PRIMARY KEY,
	company_name             TEXT NOT NULL,
	cae_primary_label        TEXT,
	trade_description_native TEXT,
	website                  TEXT,
	created_at               DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS incentives (
	id                        INTEGER PRIMARY KEY,
	incentive_project_id      TEXT,
	title                     TEXT NOT NULL,
	description               TEXT,
	ai_description            TEXT,
	ai_description_structured TEXT,
	eligibility_criteria      TEXT,
	total_budget              REAL,
	date_publication          TEXT,
	date_start                TEXT,
	date_end                  TEXT,
	source_link               TEXT,
	created_at                DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS matches (
	incentive_id  INTEGER NOT NULL REFERENCES incentives(id),
	company_id    INTEGER NOT NULL REFERENCES companies(id),
	score         REAL NOT NULL,
	rank_position INTEGER NOT NULL CHECK (rank_position BETWEEN 1 AND 5),
	reasoning     TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (incentive_id, company_id),
	UNIQUE (incentive_id, rank_position)
);

CREATE INDEX IF NOT EXISTS idx_matches_incentive ON matches(incentive_id, rank_position);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "store: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_name, COALESCE(cae_primary_label, ''),
		       COALESCE(trade_description_native, ''), COALESCE(website, '')
		FROM companies
		ORDER BY id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite query companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CAELabel, &c.TradeDescription, &c.Website); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "store: sqlite iterate companies")
}

const sqliteIncentiveColumns = `
	id, COALESCE(incentive_project_id, ''), title, COALESCE(description, ''),
	COALESCE(ai_description, ''), ai_description_structured, eligibility_criteria,
	COALESCE(total_budget, 0), date_publication, date_start, date_end,
	COALESCE(source_link, '')`

func (s *SQLiteStore) ListIncentives(ctx context.Context) ([]model.Incentive, error) {
	return s.queryIncentives(ctx, `SELECT `+sqliteIncentiveColumns+` FROM incentives ORDER BY id`)
}

func (s *SQLiteStore) IncentivesMissingMatches(ctx context.Context) ([]model.Incentive, error) {
	return s.queryIncentives(ctx, `
		SELECT `+sqliteIncentiveColumns+`
		FROM incentives i
		WHERE NOT EXISTS (SELECT 1 FROM matches m WHERE m.incentive_id = i.id)
		ORDER BY id
	`)
}

func (s *SQLiteStore) queryIncentives(ctx context.Context, query string, args ...any) ([]model.Incentive, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite query incentives")
	}
	defer rows.Close()

	var out []model.Incentive
	for rows.Next() {
		inc, err := scanSQLiteIncentive(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan incentive")
		}
		out = append(out, *inc)
	}
	return out, eris.Wrap(rows.Err(), "store: sqlite iterate incentives")
}

func (s *SQLiteStore) GetIncentive(ctx context.Context, id int64) (*model.Incentive, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteIncentiveColumns+` FROM incentives WHERE id = ?`, id)
	inc, err := scanSQLiteIncentive(row.Scan)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "store: incentive %d", id)
		}
		return nil, eris.Wrapf(err, "store: sqlite get incentive %d", id)
	}
	return inc, nil
}

func scanSQLiteIncentive(scan func(dest ...any) error) (*model.Incentive, error) {
	var (
		inc             model.Incentive
		structured      sql.NullString
		criteria        sql.NullString
		pub, start, end sql.NullString
	)
	err := scan(
		&inc.ID, &inc.IncentiveProjectID, &inc.Title, &inc.Description,
		&inc.AIDescription, &structured, &criteria,
		&inc.TotalBudget, &pub, &start, &end, &inc.SourceLink,
	)
	if err != nil {
		return nil, err
	}
	if structured.Valid {
		inc.Structured = model.ParseStructured([]byte(structured.String))
	}
	if criteria.Valid {
		inc.EligibilityCriteria = model.ParseEligibility([]byte(criteria.String))
	}
	inc.DatePublication = parseSQLiteDate(pub)
	inc.DateStart = parseSQLiteDate(start)
	inc.DateEnd = parseSQLiteDate(end)
	return &inc, nil
}

func parseSQLiteDate(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t
		}
	}
	return nil
}

func formatSQLiteDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func (s *SQLiteStore) ReplaceMatches(ctx context.Context, incentiveID int64, matches []model.Match) error {
	if err := model.ValidateMatchSet(matches); err != nil {
		return eris.Wrapf(err, "store: replace matches for incentive %d", incentiveID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: sqlite begin replace matches")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE incentive_id = ?`, incentiveID); err != nil {
		return eris.Wrapf(err, "store: sqlite clear matches for incentive %d", incentiveID)
	}

	for _, m := range matches {
		reasoning, err := json.Marshal(m.Reasoning)
		if err != nil {
			return eris.Wrapf(err, "store: marshal reasoning for company %d", m.CompanyID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO matches (incentive_id, company_id, score, rank_position, reasoning)
			VALUES (?, ?, ?, ?, ?)
		`, incentiveID, m.CompanyID, m.Score, m.RankPosition, string(reasoning))
		if err != nil {
			return eris.Wrapf(err, "store: sqlite insert match rank %d for incentive %d", m.RankPosition, incentiveID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "store: sqlite commit matches for incentive %d", incentiveID)
	}

	zap.L().Info("store: replaced matches",
		zap.Int64("incentive_id", incentiveID),
		zap.Int("count", len(matches)),
	)
	return nil
}

func (s *SQLiteStore) MatchesForIncentive(ctx context.Context, incentiveID int64) ([]model.Match, error) {
	return s.queryMatches(ctx, `
		SELECT incentive_id, company_id, score, rank_position, reasoning
		FROM matches WHERE incentive_id = ?
		ORDER BY rank_position
	`, incentiveID)
}

func (s *SQLiteStore) AllMatches(ctx context.Context) ([]model.Match, error) {
	return s.queryMatches(ctx, `
		SELECT incentive_id, company_id, score, rank_position, reasoning
		FROM matches
		ORDER BY incentive_id, rank_position
	`)
}

func (s *SQLiteStore) queryMatches(ctx context.Context, query string, args ...any) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite query matches")
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			m         model.Match
			reasoning sql.NullString
		)
		if err := rows.Scan(&m.IncentiveID, &m.CompanyID, &m.Score, &m.RankPosition, &reasoning); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan match")
		}
		if reasoning.Valid && reasoning.String != "" {
			if err := json.Unmarshal([]byte(reasoning.String), &m.Reasoning); err != nil {
				return nil, eris.Wrapf(err, "store: unmarshal reasoning for company %d", m.CompanyID)
			}
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "store: sqlite iterate matches")
}

func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "store: sqlite begin upsert companies")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO companies (id, company_name, cae_primary_label, trade_description_native, website)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name,
			cae_primary_label = excluded.cae_primary_label,
			trade_description_native = excluded.trade_description_native,
			website = excluded.website
	`)
	if err != nil {
		return 0, eris.Wrap(err, "store: sqlite prepare upsert companies")
	}
	defer stmt.Close()

	var n int64
	for _, c := range companies {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.CAELabel, c.TradeDescription, c.Website); err != nil {
			return 0, eris.Wrapf(err, "store: sqlite upsert company %d", c.ID)
		}
		n++
	}
	return n, eris.Wrap(tx.Commit(), "store: sqlite commit upsert companies")
}

func (s *SQLiteStore) UpsertIncentives(ctx context.Context, incentives []model.Incentive) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "store: sqlite begin upsert incentives")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO incentives (
			id, incentive_project_id, title, description, ai_description,
			ai_description_structured, eligibility_criteria, total_budget,
			date_publication, date_start, date_end, source_link
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			incentive_project_id = excluded.incentive_project_id,
			title = excluded.title,
			description = excluded.description,
			ai_description = excluded.ai_description,
			ai_description_structured = excluded.ai_description_structured,
			eligibility_criteria = excluded.eligibility_criteria,
			total_budget = excluded.total_budget,
			date_publication = excluded.date_publication,
			date_start = excluded.date_start,
			date_end = excluded.date_end,
			source_link = excluded.source_link
	`)
	if err != nil {
		return 0, eris.Wrap(err, "store: sqlite prepare upsert incentives")
	}
	defer stmt.Close()

	var n int64
	for _, inc := range incentives {
		structured, err := marshalStructured(inc.Structured)
		if err != nil {
			return 0, eris.Wrapf(err, "store: marshal structured description for incentive %d", inc.ID)
		}
		criteria, err := marshalCriteria(inc.EligibilityCriteria)
		if err != nil {
			return 0, eris.Wrapf(err, "store: marshal eligibility for incentive %d", inc.ID)
		}
		_, err = stmt.ExecContext(ctx,
			inc.ID, inc.IncentiveProjectID, inc.Title, inc.Description, inc.AIDescription,
			nullableString(structured), nullableString(criteria), inc.TotalBudget,
			formatSQLiteDate(inc.DatePublication), formatSQLiteDate(inc.DateStart),
			formatSQLiteDate(inc.DateEnd), inc.SourceLink,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "store: sqlite upsert incentive %d", inc.ID)
		}
		n++
	}
	return n, eris.Wrap(tx.Commit(), "store: sqlite commit upsert incentives")
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
