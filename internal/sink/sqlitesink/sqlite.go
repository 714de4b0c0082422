package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/spigell/profile-extractor/internal/profile"
)

const table = "profiles"

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	name                           TEXT NOT NULL DEFAULT '',
	job_titles_at_target_companies TEXT NOT NULL DEFAULT '',
	total_years_experience         REAL NOT NULL DEFAULT 0,
	years_at_target_companies      REAL NOT NULL DEFAULT 0,
	current_company                TEXT NOT NULL DEFAULT '',
	linkedin_url                   TEXT PRIMARY KEY,
	schools_attended               TEXT NOT NULL DEFAULT '',
	target_school                  TEXT NOT NULL DEFAULT '',
	spoken_languages               TEXT NOT NULL DEFAULT '',
	english_flag                   TEXT NOT NULL DEFAULT '',
	city_location                  TEXT NOT NULL DEFAULT '',
	paris_flag                     TEXT NOT NULL DEFAULT '',
	years_at_food_retailers        REAL NOT NULL DEFAULT 0,
	written_at                     DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Sink stores records in a SQLite table keyed by linkedin_url.
type Sink struct {
	db *sql.DB
}

// Open opens the database at dsn and configures WAL mode.
func Open(dsn string) (*Sink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}

	return &Sink{db: db}, nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

// Exists reports whether the profiles table has been created.
func (s *Sink) Exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: check table: %w", err)
	}
	return n > 0, nil
}

func (s *Sink) Create(ctx context.Context, records []profile.CanonicalRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("sqlite: drop table: %w", err)
		}
		return insert(ctx, tx, records)
	})
}

func (s *Sink) Append(ctx context.Context, records []profile.CanonicalRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, records)
	})
}

func (s *Sink) ReadAll(ctx context.Context) ([]map[string]string, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(profile.Columns, ", ")+` FROM `+table+` ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select profiles: %w", err)
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var r profile.CanonicalRecord
		if err := rows.Scan(
			&r.Name, &r.JobTitles, &r.TotalYears, &r.YearsAtTargets, &r.CurrentCompany,
			&r.LinkedInURL, &r.SchoolsAttended, &r.TargetSchool, &r.SpokenLanguages,
			&r.EnglishFlag, &r.CityLocation, &r.ParisFlag, &r.YearsAtFoodRetailers,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan profile: %w", err)
		}
		out = append(out, r.Map())
	}

	return out, rows.Err()
}

func (s *Sink) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, records []profile.CanonicalRecord) error {
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(profile.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(profile.Columns, ", ")+`) VALUES (`+placeholders+`)
		ON CONFLICT(linkedin_url) DO UPDATE SET
			name = excluded.name,
			job_titles_at_target_companies = excluded.job_titles_at_target_companies,
			total_years_experience = excluded.total_years_experience,
			years_at_target_companies = excluded.years_at_target_companies,
			current_company = excluded.current_company,
			schools_attended = excluded.schools_attended,
			target_school = excluded.target_school,
			spoken_languages = excluded.spoken_languages,
			english_flag = excluded.english_flag,
			city_location = excluded.city_location,
			paris_flag = excluded.paris_flag,
			years_at_food_retailers = excluded.years_at_food_retailers`,
	)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Name, r.JobTitles, r.TotalYears, r.YearsAtTargets, r.CurrentCompany,
			r.LinkedInURL, r.SchoolsAttended, r.TargetSchool, r.SpokenLanguages,
			r.EnglishFlag, r.CityLocation, r.ParisFlag, r.YearsAtFoodRetailers,
		); err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", r.LinkedInURL, err)
		}
	}

	return nil
}
