package apps

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"appforge/internal/gateway/entity"
	"appforge/internal/util/jsonutil"
)

// PostgresStore keeps records in the generated_apps table.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, prompt, app_name, COALESCE(description, ''), files, env_vars,
  COALESCE(deployment_instructions, ''), status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (entity.GenerationRecord, error) {
	var (
		rec     entity.GenerationRecord
		files   []byte
		envVars []byte
		status  string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Prompt,
		&rec.AppName,
		&rec.Description,
		&files,
		&envVars,
		&rec.DeploymentInstructions,
		&status,
		&rec.CreatedAt,
	); err != nil {
		return entity.GenerationRecord{}, err
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &rec.Files); err != nil {
			return entity.GenerationRecord{}, fmt.Errorf("decode files of record %d: %w", rec.ID, err)
		}
	}
	if len(envVars) > 0 {
		if err := json.Unmarshal(envVars, &rec.EnvVars); err != nil {
			return entity.GenerationRecord{}, fmt.Errorf("decode env_vars of record %d: %w", rec.ID, err)
		}
	}
	rec.Status = entity.Status(status)
	return rec.Normalize(), nil
}

func encodeJSONColumns(rec entity.GenerationRecord) (string, string, error) {
	rec = rec.Normalize()
	files, err := jsonutil.MarshalNoEscape(rec.Files)
	if err != nil {
		return "", "", fmt.Errorf("encode files: %w", err)
	}
	envVars, err := jsonutil.MarshalNoEscape(rec.EnvVars)
	if err != nil {
		return "", "", fmt.Errorf("encode env_vars: %w", err)
	}
	return string(files), string(envVars), nil
}

func (s *PostgresStore) Create(ctx context.Context, rec entity.GenerationRecord) (entity.GenerationRecord, error) {
	rec = rec.Normalize()
	files, envVars, err := encodeJSONColumns(rec)
	if err != nil {
		return entity.GenerationRecord{}, err
	}
	row := s.db.QueryRowContext(ctx, `
INSERT INTO generated_apps (
  prompt, app_name, description, files, env_vars, deployment_instructions, status
)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at`,
		rec.Prompt, rec.AppName, rec.Description, files, envVars, rec.DeploymentInstructions, string(rec.Status),
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return entity.GenerationRecord{}, fmt.Errorf("insert generated app: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec entity.GenerationRecord) error {
	rec = rec.Normalize()
	files, envVars, err := encodeJSONColumns(rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE generated_apps
SET prompt=$2, app_name=$3, description=$4, files=$5, env_vars=$6,
  deployment_instructions=$7, status=$8
WHERE id = $1`,
		rec.ID, rec.Prompt, rec.AppName, rec.Description, files, envVars, rec.DeploymentInstructions, string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("update generated app %d: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update generated app %d: %w", rec.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (entity.GenerationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM generated_apps WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.GenerationRecord{}, ErrNotFound
	}
	if err != nil {
		return entity.GenerationRecord{}, fmt.Errorf("get generated app %d: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]entity.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM generated_apps ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list generated apps: %w", err)
	}
	defer rows.Close()

	out := []entity.GenerationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list generated apps: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list generated apps: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM generated_apps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete generated app %d: %w", id, err)
	}
	return nil
}
