// Package devserver is a reference implementation of the /etapas API backed by
// SQLite. It exists for local development and as an integration target for the
// gateway client; production deployments talk to the real backend.
package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"etapas-cli/internal/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no stage has the requested id.
var ErrNotFound = errors.New("etapa not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("devserver: empty db path")
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS etapas (
			id TEXT PRIMARY KEY,
			nome TEXT NOT NULL,
			codigo TEXT NOT NULL,
			posicao INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS etapas_posicao ON etapas(posicao, nome);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("devserver: migrate: %w", err)
		}
	}
	return nil
}

// List returns every stage ordered by posicao, then nome.
func (s *Store) List(ctx context.Context) ([]model.Etapa, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome, codigo, posicao, status FROM etapas ORDER BY posicao, nome, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Etapa{}
	for rows.Next() {
		var e model.Etapa
		var st string
		if err := rows.Scan(&e.ID, &e.Nome, &e.Codigo, &e.Posicao, &st); err != nil {
			return nil, err
		}
		e.Status = model.Status(st)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (model.Etapa, error) {
	var e model.Etapa
	var st string
	err := s.db.QueryRowContext(ctx, `SELECT id, nome, codigo, posicao, status FROM etapas WHERE id = ?`, id).
		Scan(&e.ID, &e.Nome, &e.Codigo, &e.Posicao, &st)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Etapa{}, ErrNotFound
	}
	if err != nil {
		return model.Etapa{}, err
	}
	e.Status = model.Status(st)
	return e, nil
}

func (s *Store) Create(ctx context.Context, p model.Payload) (model.Etapa, error) {
	e := p.Apply(model.Etapa{ID: uuid.NewString()})
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etapas(id, nome, codigo, posicao, status, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Nome, e.Codigo, e.Posicao, string(e.Status), now, now,
	)
	if err != nil {
		return model.Etapa{}, err
	}
	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, p model.Payload) (model.Etapa, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE etapas SET nome = ?, codigo = ?, posicao = ?, status = ?, updated_at_unixms = ? WHERE id = ?`,
		p.Nome, p.Codigo, p.Posicao, string(p.Status), s.now().UnixMilli(), id,
	)
	if err != nil {
		return model.Etapa{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Etapa{}, ErrNotFound
	}
	return p.Apply(model.Etapa{ID: id}), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM etapas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
