package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mcollina/githuman-sub002/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const queryTimeout = 5 * time.Second

const todoColumns = "id, content, completed, review_id, position, created_at, updated_at"

type PostgresRepository struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		tracer: otel.Tracer("postgres-repository"),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, todo *domain.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("todo.id", todo.ID))

	// New todos append at the end of the global order.
	query := `
		INSERT INTO todos (id, content, completed, review_id, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position) + 1, 0) FROM todos), $5, $6)
		RETURNING position
	`

	err := r.db.QueryRowContext(ctx, query,
		todo.ID,
		todo.Content,
		todo.Completed,
		todo.ReviewID,
		todo.CreatedAt,
		todo.UpdatedAt,
	).Scan(&todo.Position)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create todo: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("todo.id", id))

	query := fmt.Sprintf("SELECT %s FROM todos WHERE id = $1", todoColumns)

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return nil, domain.ErrTodoNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) Update(ctx context.Context, todo *domain.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("todo.id", todo.ID))

	query := `
		UPDATE todos
		SET content = $1, completed = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		todo.Content,
		todo.Completed,
		time.Now().UTC(),
		todo.ID,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrTodoNotFound
	}

	return nil
}

func (r *PostgresRepository) Toggle(ctx context.Context, id string) (*domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Toggle")
	defer span.End()

	span.SetAttributes(attribute.String("todo.id", id))

	query := fmt.Sprintf(`
		UPDATE todos
		SET completed = NOT completed, updated_at = $1
		WHERE id = $2
		RETURNING %s
	`, todoColumns)

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTodoNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to toggle todo: %w", err)
	}

	return todo, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Delete")
	defer span.End()

	result, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrTodoNotFound
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter *domain.ListFilter) ([]*domain.Todo, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.List")
	defer span.End()

	where, args := buildWhereClause(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM todos WHERE %s", where)

	var totalCount int64
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM todos WHERE %s ORDER BY position ASC", todoColumns, where)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*domain.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("error iterating todos: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("total_count", totalCount),
		attribute.Int("returned_count", len(todos)),
	)

	return todos, totalCount, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Stats")
	defer span.End()

	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE completed)
		FROM todos
	`

	stats := &domain.Stats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Completed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	stats.Pending = stats.Total - stats.Completed

	return stats, nil
}

func (r *PostgresRepository) ClearCompleted(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.ClearCompleted")
	defer span.End()

	result, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE completed")
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to clear completed todos: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	span.SetAttributes(attribute.Int64("deleted", deleted))
	return deleted, nil
}

func (r *PostgresRepository) Reorder(ctx context.Context, orderedIDs []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Reorder")
	defer span.End()

	span.SetAttributes(attribute.Int("ordered_ids", len(orderedIDs)))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Every submitted id must exist, otherwise nothing is applied.
	var known int64
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM todos WHERE id = ANY($1)",
		pq.Array(orderedIDs),
	).Scan(&known)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to verify ordering ids: %w", err)
	}
	if known != int64(len(orderedIDs)) {
		return 0, domain.ErrUnknownTodoID
	}

	updated, err := applyOrder(ctx, tx, orderedIDs)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func (r *PostgresRepository) Move(ctx context.Context, id string, position int) (*domain.Todo, error) {
	if position < 0 {
		return nil, domain.ErrInvalidPosition
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Move")
	defer span.End()

	span.SetAttributes(
		attribute.String("todo.id", id),
		attribute.Int("position", position),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM todos ORDER BY position ASC")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read current order: %w", err)
	}

	ids := make([]string, 0)
	for rows.Next() {
		var current string
		if err := rows.Scan(&current); err != nil {
			rows.Close()
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan todo id: %w", err)
		}
		ids = append(ids, current)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating todo ids: %w", err)
	}
	rows.Close()

	ordered, found := moveWithinOrder(ids, id, position)
	if !found {
		return nil, domain.ErrTodoNotFound
	}

	if _, err := applyOrder(ctx, tx, ordered); err != nil {
		span.RecordError(err)
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE todos SET updated_at = $1 WHERE id = $2
		RETURNING %s
	`, todoColumns)

	todo, err := scanTodo(tx.QueryRowContext(ctx, query, time.Now().UTC(), id))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to reload moved todo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return todo, nil
}

// applyOrder rewrites positions so that sorting by position yields orderedIDs.
func applyOrder(ctx context.Context, tx *sql.Tx, orderedIDs []string) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, "UPDATE todos SET position = $1 WHERE id = $2")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare position update: %w", err)
	}
	defer stmt.Close()

	for i, id := range orderedIDs {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return 0, fmt.Errorf("failed to update position of todo %s: %w", id, err)
		}
	}

	return int64(len(orderedIDs)), nil
}

// moveWithinOrder removes id from ids and reinserts it at the requested
// index, clamped to the end of the sequence.
func moveWithinOrder(ids []string, id string, position int) ([]string, bool) {
	remaining := make([]string, 0, len(ids))
	found := false
	for _, current := range ids {
		if current == id {
			found = true
			continue
		}
		remaining = append(remaining, current)
	}
	if !found {
		return nil, false
	}

	if position > len(remaining) {
		position = len(remaining)
	}

	ordered := make([]string, 0, len(ids))
	ordered = append(ordered, remaining[:position]...)
	ordered = append(ordered, id)
	ordered = append(ordered, remaining[position:]...)
	return ordered, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*domain.Todo, error) {
	todo := &domain.Todo{}
	err := row.Scan(
		&todo.ID,
		&todo.Content,
		&todo.Completed,
		&todo.ReviewID,
		&todo.Position,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func buildWhereClause(filter *domain.ListFilter) (string, []any) {
	conditions := []string{"TRUE"}
	args := []any{}

	if filter.ReviewID != nil {
		args = append(args, *filter.ReviewID)
		conditions = append(conditions, fmt.Sprintf("review_id = $%d", len(args)))
	}

	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conditions = append(conditions, fmt.Sprintf("completed = $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}
