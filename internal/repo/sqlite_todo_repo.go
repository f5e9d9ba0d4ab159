package repo

import (
	"context"
	"database/sql"
	"errors"

	dom "Todo/internal/domain"
	"Todo/internal/utils"
)

var _ TodoRepo = (*SQLiteTodoRepo)(nil)

// SQLiteTodoRepo implements TodoRepo with SQLite (pure Go driver).
// Keyword search lowers both sides with ulower so non-ASCII letters match
// regardless of case.
type SQLiteTodoRepo struct {
	db *sql.DB
}

func NewSQLiteTodoRepo(db *sql.DB) *SQLiteTodoRepo {
	return &SQLiteTodoRepo{db: db}
}

func (r *SQLiteTodoRepo) ListAll(ctx context.Context) ([]dom.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectSQL(rows)
}

func (r *SQLiteTodoRepo) Insert(ctx context.Context, t dom.Todo) error {
	query := `
		INSERT INTO todos (id, title, description, created_at, updated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Title, t.Description, t.CreatedAt, t.UpdatedAt, t.FinishedAt)
	if utils.IsSQLiteUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *SQLiteTodoRepo) Remove(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteTodoRepo) UpdateByID(ctx context.Context, t dom.Todo) error {
	query := `
		UPDATE todos
		SET title = ?, description = ?, updated_at = ?, finished_at = COALESCE(?, finished_at)
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, t.Title, t.Description, t.UpdatedAt, t.FinishedAt, t.ID)
	return err
}

func (r *SQLiteTodoRepo) FindByID(ctx context.Context, id string) (dom.Todo, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dom.Todo{}, false, nil
	}
	if err != nil {
		return dom.Todo{}, false, err
	}
	return t, true, nil
}

func (r *SQLiteTodoRepo) FindByKeyword(ctx context.Context, pattern string) ([]dom.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos WHERE ulower(title) LIKE ulower(?1) ESCAPE '\' OR ulower(description) LIKE ulower(?1) ESCAPE '\'
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	return collectSQL(rows)
}

func (r *SQLiteTodoRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func collectSQL(rows *sql.Rows) ([]dom.Todo, error) {
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
