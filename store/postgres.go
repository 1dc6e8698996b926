package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"drugdeaths/loader"
)

// Schema creates the deaths and death_substances tables. It is idempotent.
//
//go:embed schema.sql
var Schema string

var deathColumns = []string{
	"row_num", "case_id", "death_date", "year", "month", "day", "quarter", "day_of_week",
	"age", "age_imputed", "sex", "race",
	"residence_city", "residence_county", "residence_state", "death_city", "death_county",
	"location", "injury_place", "description_of_injury", "cause_of_death",
	"death_city_geo", "latitude", "longitude",
}

var substanceColumns = []string{"row_num", "substance"}

// LoadStats counts what LoadTable wrote.
type LoadStats struct {
	Deaths     int64
	Substances int64
	Batches    int
	Elapsed    time.Duration
}

// Connect opens a small pool and checks the server is reachable.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// LoadTable bulk-loads t with COPY, committing every batchSize deaths
// together with their substance rows. row_num is the record's position in t.
func LoadTable(ctx context.Context, pool *pgxpool.Pool, t *loader.Table, batchSize int, logger *zap.Logger) (LoadStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	start := time.Now()
	var (
		stats   LoadStats
		deaths  [][]any
		subs    [][]any
		lastLog = time.Now()
	)

	flush := func() error {
		if len(deaths) == 0 {
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"deaths"}, deathColumns, pgx.CopyFromRows(deaths))
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("copy deaths: %w", err)
		}
		m, err := tx.CopyFrom(ctx, pgx.Identifier{"death_substances"}, substanceColumns, pgx.CopyFromRows(subs))
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("copy death_substances: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		stats.Deaths += n
		stats.Substances += m
		stats.Batches++
		deaths, subs = deaths[:0], subs[:0]
		return nil
	}

	var err error
	t.Each(func(i int, r loader.Record) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		deaths = append(deaths, deathRow(i, r))
		for _, s := range substances(r) {
			subs = append(subs, []any{i, s})
		}
		if len(deaths) >= batchSize {
			if err = flush(); err != nil {
				return false
			}
		}
		if time.Since(lastLog) >= 5*time.Second {
			logger.Info("load progress",
				zap.Int("rows", i+1),
				zap.Int("total", t.Len()),
				zap.Int64("deaths", stats.Deaths),
				zap.Int64("substances", stats.Substances))
			lastLog = time.Now()
		}
		return true
	})
	if err == nil {
		err = flush()
	}
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}
	logger.Info("load complete",
		zap.Int64("deaths", stats.Deaths),
		zap.Int64("substances", stats.Substances),
		zap.Int("batches", stats.Batches),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

func deathRow(i int, r loader.Record) []any {
	return []any{
		i, sanitizeUTF8(r.ID), r.Date, r.Year, r.Month, r.Day, r.Quarter, r.DayOfWeek,
		r.Age, r.AgeImputed, sanitizeUTF8(r.Sex), sanitizeUTF8(r.Race),
		sanitizeUTF8(r.ResidenceCity), sanitizeUTF8(r.ResidenceCounty), sanitizeUTF8(r.ResidenceState),
		sanitizeUTF8(r.DeathCity), sanitizeUTF8(r.DeathCounty),
		sanitizeUTF8(r.Location), sanitizeUTF8(r.InjuryPlace),
		sanitizeUTF8(r.DescriptionOfInjury), sanitizeUTF8(r.CauseOfDeath),
		sanitizeUTF8(r.DeathCityGeo), r.Latitude, r.Longitude,
	}
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with spaces.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, " ")
}
