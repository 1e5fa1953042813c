package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// A second pooled connection would see its own empty in-memory
	// database, so pin the pool to one.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE app_user (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			line_user_id VARCHAR(100) NOT NULL UNIQUE,
			display_name VARCHAR(100),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE investor (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			name VARCHAR(50) NOT NULL,
			is_self BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES app_user(id) ON DELETE CASCADE,
			CONSTRAINT unique_user_investor UNIQUE (user_id, name)
		);

		-- Append-only trade log
		CREATE TABLE trade (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			investor_id VARCHAR(36) NOT NULL,
			security_id VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL CHECK (side IN ('BUY', 'SELL')),
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			fee TEXT NOT NULL DEFAULT '0',
			tax TEXT NOT NULL DEFAULT '0',
			total_amount TEXT NOT NULL,
			trade_date DATE NOT NULL,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(investor_id) REFERENCES investor(id) ON DELETE CASCADE
		);

		CREATE INDEX idx_trade_investor_date ON trade(investor_id, trade_date);
		CREATE INDEX idx_trade_security ON trade(security_id);

		CREATE TABLE holding (
			investor_id VARCHAR(36) NOT NULL,
			security_id VARCHAR(20) NOT NULL,
			quantity TEXT NOT NULL,
			avg_cost TEXT NOT NULL,
			total_invested TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (investor_id, security_id),
			FOREIGN KEY(investor_id) REFERENCES investor(id) ON DELETE CASCADE
		);

		CREATE TABLE realized_pnl (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			investor_id VARCHAR(36) NOT NULL,
			security_id VARCHAR(20) NOT NULL,
			trade_id VARCHAR(36) NOT NULL,
			quantity_sold TEXT NOT NULL,
			cost_basis TEXT NOT NULL,
			proceeds TEXT NOT NULL,
			gain_loss TEXT NOT NULL,
			trade_date DATE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(investor_id) REFERENCES investor(id) ON DELETE CASCADE,
			FOREIGN KEY(trade_id) REFERENCES trade(id) ON DELETE CASCADE
		);

		CREATE INDEX idx_realized_investor ON realized_pnl(investor_id, security_id);

		CREATE TABLE dim_security (
			security_id VARCHAR(20) NOT NULL PRIMARY KEY,
			name_zh VARCHAR(100) NOT NULL,
			market VARCHAR(20),
			industry VARCHAR(100),
			isin VARCHAR(20),
			status VARCHAR(20),
			updated_at DATETIME
		);

		CREATE INDEX idx_dim_security_name ON dim_security(name_zh);

		CREATE TABLE price_cache (
			security_id VARCHAR(20) NOT NULL PRIMARY KEY,
			current_price TEXT NOT NULL,
			previous_close TEXT,
			change_percent TEXT,
			fetched_at DATETIME NOT NULL
		);

		CREATE TABLE setting (
			"key" VARCHAR(50) NOT NULL PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME
		);
	`

	_, err := db.Exec(schema)
	return err
}
