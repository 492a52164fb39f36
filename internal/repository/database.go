package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrAssetNotFound = errors.New("not found in datasource")
	ErrNoBars        = errors.New("no bars found in datasource")
)

type symbolsRepository interface {
	GetSymbolByTicker(ctx context.Context, ticker string) (symbolRow, error)
}
type pricesRepository interface {
	GetDailyPrices(ctx context.Context, arg getDailyPricesParams) ([]dailyPriceRow, error)
}

// Database is an explicitly owned handle on the securities master. Close it
// when the run is done.
type Database struct {
	symbols  symbolsRepository
	prices   pricesRepository
	vendorID *int32
	conn     *pgxpool.Pool
}

type Option func(*Database)

// WithDataVendor restricts price queries to one data_vendor_id.
func WithDataVendor(id int32) Option {
	return func(db *Database) { db.vendorID = &id }
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string, opts ...Option) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	queries := NewQueries(conn)
	db := &Database{
		symbols: queries,
		prices:  queries,
		conn:    conn,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
