package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paperTradeBot/internal/domain"
	"paperTradeBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Compile-time interface checks.
var (
	_ ports.TradeRepository    = (*Repository)(nil)
	_ ports.SnapshotRepository = (*Repository)(nil)
)

// Repository implements the ports.TradeRepository and ports.SnapshotRepository
// interfaces using SQLite. It is the durable-storage collaborator the engine
// hands executed fills and equity snapshots to.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_trading.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite repository initialized", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		realized_pnl REAL NOT NULL DEFAULT 0,
		triggered_by TEXT DEFAULT NULL,
		executed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS equity_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TIMESTAMP NOT NULL,
		equity REAL NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_executed_at ON trades (symbol, executed_at);
	CREATE INDEX IF NOT EXISTS idx_equity_snapshots_recorded_at ON equity_snapshots (recorded_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// RecordTrade saves an executed fill.
func (r *Repository) RecordTrade(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, symbol, side, quantity, price, realized_pnl, triggered_by, executed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var triggeredBy sql.NullString
	if trade.TriggeredBy != "" {
		triggeredBy = sql.NullString{String: trade.TriggeredBy, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.Side), trade.Quantity, trade.Price, trade.RealizedPnL, triggeredBy, trade.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s for symbol %s: %w", trade.ID, trade.Symbol, err)
	}
	r.logger.Debug(ctx, "Trade recorded", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol})
	return nil
}

// FindTrades retrieves all fills, ordered by execution time ascending.
func (r *Repository) FindTrades(ctx context.Context) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, side, quantity, price, realized_pnl, COALESCE(triggered_by, ''), executed_at
	FROM trades
	ORDER BY executed_at ASC`

	return r.queryTrades(ctx, query)
}

// FindTradesBySymbol retrieves all fills for one symbol, ordered by execution
// time ascending.
func (r *Repository) FindTradesBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, side, quantity, price, realized_pnl, COALESCE(triggered_by, ''), executed_at
	FROM trades
	WHERE symbol = ?
	ORDER BY executed_at ASC`

	return r.queryTrades(ctx, query, symbol)
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.RealizedPnL, &t.TriggeredBy, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		t.Side = domain.OrderSide(side)
		trades = append(trades, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- SnapshotRepository Implementation ---

// RecordSnapshot saves one equity-curve point.
func (r *Repository) RecordSnapshot(ctx context.Context, point domain.EquityPoint) error {
	const query = `INSERT INTO equity_snapshots (recorded_at, equity) VALUES (?, ?)`

	_, err := r.db.ExecContext(ctx, query, point.Time, point.Equity)
	if err != nil {
		return fmt.Errorf("failed to insert equity snapshot: %w", err)
	}
	return nil
}

// FindSnapshots retrieves the persisted equity curve, ordered by time ascending.
func (r *Repository) FindSnapshots(ctx context.Context) ([]domain.EquityPoint, error) {
	const query = `SELECT recorded_at, equity FROM equity_snapshots ORDER BY recorded_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity snapshots: %w", err)
	}
	defer rows.Close()

	points := make([]domain.EquityPoint, 0)
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.Time, &p.Equity); err != nil {
			return nil, fmt.Errorf("failed to scan equity snapshot row: %w", err)
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equity snapshot rows: %w", err)
	}
	return points, nil
}
