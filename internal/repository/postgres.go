package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"landprice/internal/model"
)

// Columns a filter may reference, by payload key, with their SQL types
var pgFilterColumns = map[string]string{
	"ward":                            "TEXT",
	"station":                         "TEXT",
	"usage":                           "TEXT",
	"distance_to_station":             "INTEGER",
	"time_to_station":                 "INTEGER",
	"is_max_price":                    "BOOLEAN",
	"is_min_price":                    "BOOLEAN",
	"is_top_1_percent_price":          "BOOLEAN",
	"is_bottom_1_percent_price":       "BOOLEAN",
	"is_max_change_rate":              "BOOLEAN",
	"is_min_change_rate":              "BOOLEAN",
	"is_top_1_percent_change_rate":    "BOOLEAN",
	"is_bottom_1_percent_change_rate": "BOOLEAN",
}

var pgTableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const pgRecordColumns = `id, price, price_tier, price_percentile,
	is_max_price, is_min_price, is_top_1_percent_price, is_bottom_1_percent_price,
	change_rate, change_rate_tier, change_rate_percentile,
	is_max_change_rate, is_min_change_rate, is_top_1_percent_change_rate, is_bottom_1_percent_change_rate,
	ward, station, usage, usage_detail, surrounding_detail,
	distance_to_station, distance_to_station_tier, time_to_station,
	lat AS "location.lat", lon AS "location.lon", semantic_text`

// pgRecord is a table row. Location maps to the lat/lon columns through the
// "location.*" aliases.
type pgRecord struct {
	ID        int64           `db:"id"`
	Embedding pgvector.Vector `db:"embedding"`
	Score     float64         `db:"score"`
	model.LandPrice
}

// PostgresRepository stores records in a PostgreSQL table with a pgvector column
type PostgresRepository struct {
	db    *sqlx.DB
	table string
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn, table string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	if !pgTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, unavailable("connect postgres", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return NewPostgresRepositoryWithDB(db, table), nil
}

// NewPostgresRepositoryWithDB creates a repository around an open handle
func NewPostgresRepositoryWithDB(db *sqlx.DB, table string) *PostgresRepository {
	return &PostgresRepository{db: db, table: table}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// CollectionExists reports whether the table is present
func (r *PostgresRepository) CollectionExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT to_regclass($1) IS NOT NULL`, r.table); err != nil {
		return false, unavailable("postgres table exists", err)
	}
	return exists, nil
}

// CreateCollection creates the table, its vector index and the filter indexes
func (r *PostgresRepository) CreateCollection(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dims)
	}

	for _, stmt := range r.schema(dims) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("postgres create table "+r.table, err)
		}
	}
	return nil
}

func (r *PostgresRepository) schema(dims int) []string {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			price BIGINT NOT NULL,
			price_tier SMALLINT NOT NULL,
			price_percentile DOUBLE PRECISION NOT NULL,
			is_max_price BOOLEAN NOT NULL,
			is_min_price BOOLEAN NOT NULL,
			is_top_1_percent_price BOOLEAN NOT NULL,
			is_bottom_1_percent_price BOOLEAN NOT NULL,
			change_rate DOUBLE PRECISION NOT NULL,
			change_rate_tier SMALLINT NOT NULL,
			change_rate_percentile DOUBLE PRECISION NOT NULL,
			is_max_change_rate BOOLEAN NOT NULL,
			is_min_change_rate BOOLEAN NOT NULL,
			is_top_1_percent_change_rate BOOLEAN NOT NULL,
			is_bottom_1_percent_change_rate BOOLEAN NOT NULL,
			ward TEXT NOT NULL,
			station TEXT NOT NULL,
			usage TEXT NOT NULL,
			usage_detail TEXT NOT NULL,
			surrounding_detail TEXT NOT NULL,
			distance_to_station INTEGER NOT NULL,
			distance_to_station_tier SMALLINT NOT NULL,
			time_to_station INTEGER NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			semantic_text TEXT NOT NULL
		)`, r.table, dims),
	}
	return append(stmts, r.indexes()...)
}

// EnsureIndexes creates the vector and filter indexes that are missing
func (r *PostgresRepository) EnsureIndexes(ctx context.Context) error {
	for _, stmt := range r.indexes() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("postgres create index on "+r.table, err)
		}
	}
	return nil
}

func (r *PostgresRepository) indexes() []string {
	stmts := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx ON %[1]s USING hnsw (embedding vector_cosine_ops)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_location_idx ON %[1]s (lat, lon)`, r.table),
	}
	for _, col := range []string{"ward", "station", "usage"} {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_%[2]s_idx ON %[1]s (%[2]s)`, r.table, col))
	}
	return stmts
}

// DeleteCollection drops the table
func (r *PostgresRepository) DeleteCollection(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, r.table)); err != nil {
		return unavailable("postgres drop table "+r.table, err)
	}
	return nil
}

// UpsertPoints writes points in one transaction, replacing rows with the same id
func (r *PostgresRepository) UpsertPoints(ctx context.Context, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("postgres begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, r.upsertQuery())
	if err != nil {
		return unavailable("postgres prepare upsert", err)
	}
	defer stmt.Close()

	for _, p := range points {
		row := pgRecord{
			ID:        int64(p.ID),
			Embedding: pgvector.NewVector(p.Vector),
			LandPrice: p.Payload,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return unavailable(fmt.Sprintf("postgres upsert point %d", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("postgres commit", err)
	}
	return nil
}

func (r *PostgresRepository) upsertQuery() string {
	cols := []string{
		"id", "embedding", "price", "price_tier", "price_percentile",
		"is_max_price", "is_min_price", "is_top_1_percent_price", "is_bottom_1_percent_price",
		"change_rate", "change_rate_tier", "change_rate_percentile",
		"is_max_change_rate", "is_min_change_rate", "is_top_1_percent_change_rate", "is_bottom_1_percent_change_rate",
		"ward", "station", "usage", "usage_detail", "surrounding_detail",
		"distance_to_station", "distance_to_station_tier", "time_to_station",
		"lat", "lon", "semantic_text",
	}

	values := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		switch col {
		case "lat", "lon":
			values[i] = ":location." + col
		default:
			values[i] = ":" + col
		}
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s`,
		r.table, strings.Join(cols, ", "), strings.Join(values, ", "), strings.Join(updates, ", "))
}

// QuerySimilar ranks rows by cosine distance to vector, restricted by filter
func (r *PostgresRepository) QuerySimilar(ctx context.Context, vector []float32, filter *model.QueryFilter, limit int) ([]model.ScoredRecord, error) {
	where, args, err := buildPgWhere(filter, 2)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT %d
	`, pgRecordColumns, r.table, where, limit)

	args = append([]interface{}{pgvector.NewVector(vector)}, args...)

	var rows []pgRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, unavailable("postgres similarity query", err)
	}

	records := make([]model.ScoredRecord, len(rows))
	for i, row := range rows {
		records[i] = model.ScoredRecord{
			ID:      uint64(row.ID),
			Score:   float32(row.Score),
			Payload: row.LandPrice,
		}
	}
	return records, nil
}

// buildPgWhere renders a filter as a WHERE clause with numbered placeholders
// starting at argIndex. A nil filter renders as TRUE.
func buildPgWhere(filter *model.QueryFilter, argIndex int) (string, []interface{}, error) {
	if filter.Len() == 0 {
		return "TRUE", nil, nil
	}

	clauses := make([]string, 0, len(filter.Must))
	var args []interface{}

	for _, c := range filter.Must {
		if c.Kind == model.ConditionGeoBox {
			if c.GeoBox == nil {
				return "", nil, fmt.Errorf("geo box condition on %s has no box", c.Field)
			}
			clauses = append(clauses, fmt.Sprintf("lat BETWEEN $%d AND $%d AND lon BETWEEN $%d AND $%d",
				argIndex, argIndex+1, argIndex+2, argIndex+3))
			args = append(args,
				c.GeoBox.BottomRight.Lat, c.GeoBox.TopLeft.Lat,
				c.GeoBox.TopLeft.Lon, c.GeoBox.BottomRight.Lon)
			argIndex += 4
			continue
		}

		if _, ok := pgFilterColumns[c.Field]; !ok {
			return "", nil, fmt.Errorf("field %q cannot be filtered", c.Field)
		}

		switch c.Kind {
		case model.ConditionKeyword:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Field, argIndex))
			args = append(args, c.Keyword)
		case model.ConditionBool:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Field, argIndex))
			args = append(args, c.Bool)
		case model.ConditionRange:
			if c.Lte == nil {
				return "", nil, fmt.Errorf("range condition on %s has no bound", c.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", c.Field, argIndex))
			args = append(args, *c.Lte)
		default:
			return "", nil, fmt.Errorf("unsupported condition kind %q", c.Kind)
		}
		argIndex++
	}

	return strings.Join(clauses, " AND "), args, nil
}
