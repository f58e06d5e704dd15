package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restforge/restforge/internal/domain"
)

// Table describes the SQL shape of one entity type: its table name and the
// entity-specific columns. Identifier and audit columns are implicit.
type Table struct {
	Name    string
	Columns []string
}

// TableStore executes filter-shaped queries against one table. It is the
// persistence collaborator of the crud pipelines: it reports failures as
// opaque wrapped errors and never interprets them.
type TableStore struct {
	pool  *pgxpool.Pool
	table Table
}

// NewTableStore creates a store bound to a table.
func NewTableStore(pool *pgxpool.Pool, table Table) *TableStore {
	return &TableStore{pool: pool, table: table}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *TableStore) selectColumns() []string {
	cols := []string{
		quoteIdent(domain.ColumnID),
		quoteIdent(domain.ColumnCreatedBy),
		quoteIdent(domain.ColumnUpdatedBy),
		quoteIdent(domain.ColumnCreatedAt),
		quoteIdent(domain.ColumnUpdatedAt),
	}
	for _, col := range s.table.Columns {
		cols = append(cols, quoteIdent(col))
	}
	return cols
}

// whereSqlizer turns the filter predicate into squirrel conditions. Keys may
// carry an operator suffix of the form "field__op"; plain keys mean equality.
func whereSqlizer(where map[string]any) (squirrel.Sqlizer, error) {
	if len(where) == 0 {
		return nil, nil
	}
	and := make(squirrel.And, 0, len(where))
	for key, val := range where {
		base := domain.BaseWhereKey(key)
		op := "eq"
		if base != key {
			op = key[len(base)+2:]
		}
		col := quoteIdent(base)
		switch op {
		case "eq", "in":
			and = append(and, squirrel.Eq{col: val})
		case "ne":
			and = append(and, squirrel.NotEq{col: val})
		case "lt":
			and = append(and, squirrel.Lt{col: val})
		case "lte":
			and = append(and, squirrel.LtOrEq{col: val})
		case "gt":
			and = append(and, squirrel.Gt{col: val})
		case "gte":
			and = append(and, squirrel.GtOrEq{col: val})
		case "like":
			and = append(and, squirrel.ILike{col: fmt.Sprintf("%%%v%%", val)})
		default:
			return nil, fmt.Errorf("unknown predicate operator %q in key %q", op, key)
		}
	}
	return and, nil
}

func (s *TableStore) selectBuilder(filter *domain.Filter) (squirrel.SelectBuilder, error) {
	sb := squirrel.Select(s.selectColumns()...).
		From(quoteIdent(s.table.Name)).
		PlaceholderFormat(squirrel.Dollar)

	cond, err := whereSqlizer(filter.Where)
	if err != nil {
		return sb, err
	}
	if cond != nil {
		sb = sb.Where(cond)
	}
	for _, term := range filter.OrderBy {
		dir := "ASC"
		if term.Direction == domain.SortDirectionDesc {
			dir = "DESC"
		}
		sb = sb.OrderBy(quoteIdent(term.Field) + " " + dir)
	}
	if filter.Limit > 0 {
		sb = sb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		sb = sb.Offset(uint64(filter.Offset))
	}
	return sb, nil
}

func (s *TableStore) scanRecord(row pgx.Row) (*domain.Record, error) {
	rec := &domain.Record{Fields: make(map[string]any, len(s.table.Columns))}
	targets := []any{&rec.ID, &rec.CreatedBy, &rec.UpdatedBy, &rec.CreatedAt, &rec.UpdatedAt}
	values := make([]any, len(s.table.Columns))
	for i := range values {
		targets = append(targets, &values[i])
	}
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	for i, col := range s.table.Columns {
		rec.Fields[col] = values[i]
	}
	return rec, nil
}

// Find returns the single row matching the filter, or nil when none does.
func (s *TableStore) Find(ctx context.Context, filter *domain.Filter) (*domain.Record, error) {
	sb, err := s.selectBuilder(filter)
	if err != nil {
		return nil, err
	}
	sql, args, err := sb.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query for %s: %w", s.table.Name, err)
	}

	rec, err := s.scanRecord(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s row: %w", s.table.Name, err)
	}
	return rec, nil
}

// Count returns the number of rows matching the predicate.
func (s *TableStore) Count(ctx context.Context, filter *domain.Filter) (int64, error) {
	cb := squirrel.Select("COUNT(*)").
		From(quoteIdent(s.table.Name)).
		PlaceholderFormat(squirrel.Dollar)

	cond, err := whereSqlizer(filter.Where)
	if err != nil {
		return 0, err
	}
	if cond != nil {
		cb = cb.Where(cond)
	}
	sql, args, err := cb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query for %s: %w", s.table.Name, err)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", s.table.Name, err)
	}
	return count, nil
}

// FindAndCountAll returns the total matching count alongside the selected
// page. The count sees the predicate only, never the pagination bounds.
func (s *TableStore) FindAndCountAll(ctx context.Context, filter *domain.Filter) (int64, []*domain.Record, error) {
	total, err := s.Count(ctx, filter)
	if err != nil {
		return 0, nil, err
	}

	sb, err := s.selectBuilder(filter)
	if err != nil {
		return 0, nil, err
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build query for %s: %w", s.table.Name, err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list %s rows: %w", s.table.Name, err)
	}
	defer rows.Close()

	records := []*domain.Record{}
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to scan %s row: %w", s.table.Name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("failed to read %s rows: %w", s.table.Name, err)
	}
	return total, records, nil
}

// Create inserts a row from the known-column subset of fields, attributing
// both createdBy and updatedBy to the actor. Unknown keys are dropped.
func (s *TableStore) Create(ctx context.Context, fields map[string]any, actor int64) (*domain.Record, error) {
	now := time.Now().UTC()
	cols := []string{
		quoteIdent(domain.ColumnCreatedBy),
		quoteIdent(domain.ColumnUpdatedBy),
		quoteIdent(domain.ColumnCreatedAt),
		quoteIdent(domain.ColumnUpdatedAt),
	}
	vals := []any{actor, actor, now, now}
	for _, col := range s.table.Columns {
		if v, ok := fields[col]; ok {
			cols = append(cols, quoteIdent(col))
			vals = append(vals, v)
		}
	}

	sql, args, err := squirrel.Insert(quoteIdent(s.table.Name)).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING " + strings.Join(s.selectColumns(), ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert for %s: %w", s.table.Name, err)
	}

	rec, err := s.scanRecord(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s row: %w", s.table.Name, err)
	}
	return rec, nil
}

// Save writes the record's current field values and updatedBy back to its row.
func (s *TableStore) Save(ctx context.Context, rec *domain.Record) error {
	now := time.Now().UTC()
	ub := squirrel.Update(quoteIdent(s.table.Name)).
		Set(quoteIdent(domain.ColumnUpdatedBy), rec.UpdatedBy).
		Set(quoteIdent(domain.ColumnUpdatedAt), now).
		Where(squirrel.Eq{quoteIdent(domain.ColumnID): rec.ID}).
		PlaceholderFormat(squirrel.Dollar)
	for _, col := range s.table.Columns {
		if v, ok := rec.Fields[col]; ok {
			ub = ub.Set(quoteIdent(col), v)
		}
	}

	sql, args, err := ub.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update for %s: %w", s.table.Name, err)
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to save %s row %d: %w", s.table.Name, rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no %s row with id %d", s.table.Name, rec.ID)
	}
	rec.UpdatedAt = now
	return nil
}

// Destroy removes the record's row.
func (s *TableStore) Destroy(ctx context.Context, rec *domain.Record) error {
	sql, args, err := squirrel.Delete(quoteIdent(s.table.Name)).
		Where(squirrel.Eq{quoteIdent(domain.ColumnID): rec.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete for %s: %w", s.table.Name, err)
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete %s row %d: %w", s.table.Name, rec.ID, err)
	}
	return nil
}
