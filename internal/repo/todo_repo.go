package repo

import (
	"context"
	"errors"
	"time"

	dom "Todo/internal/domain"
	"Todo/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateID is returned by Insert when a todo with the same ID already exists.
var ErrDuplicateID = errors.New("todo id already exists")

// TodoRepo is the persistence capability set the service depends on.
//
// FindByKeyword takes a LIKE pattern ('%' any run, '_' one char, '\' escape)
// matched case-insensitively against title or description.
type TodoRepo interface {
	ListAll(ctx context.Context) ([]dom.Todo, error)
	Insert(ctx context.Context, t dom.Todo) error
	Remove(ctx context.Context, id string) (int64, error)
	UpdateByID(ctx context.Context, t dom.Todo) error
	FindByID(ctx context.Context, id string) (dom.Todo, bool, error)
	FindByKeyword(ctx context.Context, pattern string) ([]dom.Todo, error)
	Ping(ctx context.Context) error
}

const todoColumns = `id, title, description, created_at, updated_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

var _ TodoRepo = (*PGTodoRepo)(nil)

// PGTodoRepo implements TodoRepo with Postgres.
type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func (r *PGTodoRepo) ListAll(ctx context.Context) ([]dom.Todo, error) {
	rows, err := r.db.Query(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectPG(rows)
}

func (r *PGTodoRepo) Insert(ctx context.Context, t dom.Todo) error {
	query := `
		INSERT INTO todos (id, title, description, created_at, updated_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, t.ID, t.Title, t.Description, t.CreatedAt, t.UpdatedAt, t.FinishedAt)
	if utils.IsPGUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *PGTodoRepo) Remove(ctx context.Context, id string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PGTodoRepo) UpdateByID(ctx context.Context, t dom.Todo) error {
	query := `
		UPDATE todos
		SET title = $2, description = $3, updated_at = $4, finished_at = COALESCE($5, finished_at)
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query, t.ID, t.Title, t.Description, t.UpdatedAt, t.FinishedAt)
	return err
}

func (r *PGTodoRepo) FindByID(ctx context.Context, id string) (dom.Todo, bool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
	t, err := scanTodo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, false, nil
	}
	if err != nil {
		return dom.Todo{}, false, err
	}
	return t, true, nil
}

func (r *PGTodoRepo) FindByKeyword(ctx context.Context, pattern string) ([]dom.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos WHERE title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\'
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	return collectPG(rows)
}

func (r *PGTodoRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func collectPG(rows pgx.Rows) ([]dom.Todo, error) {
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTodo(s scanner) (dom.Todo, error) {
	var (
		t        dom.Todo
		finished *time.Time
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &finished); err != nil {
		return dom.Todo{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if finished != nil {
		utc := finished.UTC()
		t.FinishedAt = &utc
	}
	return t, nil
}
