package auth

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// MariaConfig holds MariaDB connection settings.
type MariaConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// DSN renders the driver connection string.
func (c MariaConfig) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, fmt.Sprint(port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	_ = cfg.Apply(mysql.Charset("utf8mb4", "utf8mb4_unicode_ci"))
	return cfg.FormatDSN()
}

// MariaUserRepo implements UserRepository for MariaDB/MySQL.
type MariaUserRepo struct {
	db *sql.DB
}

// NewMariaUserRepo connects, pings and creates the users table if needed.
func NewMariaUserRepo(ctx context.Context, cfg MariaConfig) (*MariaUserRepo, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MariaDB: %w", classifySQL(err))
	}

	repo := &MariaUserRepo{db: db}
	if err := repo.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logging.GetAuthLogger().Info("MariaDB user repository ready at %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return repo, nil
}

func (m *MariaUserRepo) createTables(ctx context.Context) error {
	const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	if _, err := m.db.ExecContext(ctx, createUsersTable); err != nil {
		return classifySQL(err)
	}
	return nil
}

// GetUserByUsername implements UserRepository.
func (m *MariaUserRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT username, password_hash, created_at FROM users WHERE username = ?`

	var user User
	err := m.db.QueryRowContext(ctx, query, normalize(username)).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classifySQL(err))
	}
	return &user, nil
}

// CreateUser implements UserRepository.
func (m *MariaUserRepo) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	const query = `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`

	user := &User{
		Username:     normalize(username),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err := m.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.CreatedAt)
	if isDuplicateEntry(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", classifySQL(err))
	}
	return user, nil
}

// Close closes the connection pool.
func (m *MariaUserRepo) Close() error {
	return m.db.Close()
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// classifySQL maps connectivity failures onto storage.ErrStoreUnavailable.
func classifySQL(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}
	return err
}
