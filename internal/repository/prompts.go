package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
)

const promptTable = "prompt_logs"

// PromptRepository reads the catalogue of extraction instructions.
type PromptRepository interface {
	List(ctx context.Context) ([]entity.Prompt, error)
	GetByID(ctx context.Context, id int64) (*entity.Prompt, error)
	Create(ctx context.Context, name, text string) (*entity.Prompt, error)
}

type promptRepo struct {
	db  *DB
	log *slog.Logger
}

func NewPromptRepository(db *DB, log *slog.Logger) PromptRepository {
	if log == nil {
		log = slog.Default()
	}
	return &promptRepo{db: db, log: log}
}

// List returns prompts, most recently updated first.
func (r *promptRepo) List(ctx context.Context) ([]entity.Prompt, error) {
	b := sql.Dialect(r.db.Dialect())
	query, args := b.Select("id", "prompt_name", "prompt_text", "updated_at").
		From(b.Table(promptTable)).
		OrderBy(sql.Desc("updated_at")).
		Query()
	return r.query(ctx, query, args)
}

func (r *promptRepo) GetByID(ctx context.Context, id int64) (*entity.Prompt, error) {
	b := sql.Dialect(r.db.Dialect())
	query, args := b.Select("id", "prompt_name", "prompt_text", "updated_at").
		From(b.Table(promptTable)).
		Where(sql.EQ("id", id)).
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("prompt %d: %w", id, common.ErrNotFound)
	}
	return &out[0], nil
}

// Create inserts a prompt and reads it back by name and timestamp.
func (r *promptRepo) Create(ctx context.Context, name, text string) (*entity.Prompt, error) {
	now := time.Now().UTC()
	b := sql.Dialect(r.db.Dialect())
	query, args := b.Insert(promptTable).
		Columns("prompt_name", "prompt_text", "updated_at").
		Values(name, text, now).
		Query()
	var res stdsql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.log.Error("prompt insert failed", "prompt_name", name, "err", err)
		return nil, classify(err)
	}

	query, args = b.Select("id", "prompt_name", "prompt_text", "updated_at").
		From(b.Table(promptTable)).
		Where(sql.EQ("prompt_name", name)).
		OrderBy(sql.Desc("id")).
		Limit(1).
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("prompt %q: %w", name, common.ErrNotFound)
	}
	r.log.Info("prompt created", "prompt_id", out[0].ID, "prompt_name", name)
	return &out[0], nil
}

func (r *promptRepo) query(ctx context.Context, query string, args []any) ([]entity.Prompt, error) {
	rows := &sql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		r.log.Error("prompt query failed", "err", err)
		return nil, classify(err)
	}
	defer rows.Close()

	var out []entity.Prompt
	for rows.Next() {
		var (
			p       entity.Prompt
			updated nullTime
		)
		if err := rows.Scan(&p.ID, &p.PromptName, &p.PromptText, &updated); err != nil {
			return nil, classify(err)
		}
		p.UpdatedAt = updated.Time
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}
