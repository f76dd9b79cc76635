// Package v2 opens and migrates the alert settings database.
package v2

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

// SQLiteFileName is the database file created inside Config.DataDir.
const SQLiteFileName = "alertcore.db"

// Config configures a Manager.
type Config struct {
	// DataDir holds the sqlite database file.
	DataDir string
	// DSN is the mysql connection string.
	DSN string
	// Debug logs every statement.
	Debug  bool
	Logger logger.Logger
}

// Manager owns the database connection.
type Manager interface {
	// Initialize creates or upgrades the schema.
	Initialize() error
	DB() *gorm.DB
	// Dialect returns conf.DriverSQLite or conf.DriverMySQL.
	Dialect() string
	Close() error
}

type manager struct {
	db      *gorm.DB
	dialect string
	log     logger.Logger
}

// Models lists every entity the schema contains, in dependency order.
func Models() []any {
	return []any{&entities.AlertType{}, &entities.AlertEntry{}}
}

// NewManager opens the database selected by settings.
func NewManager(settings conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	cfg := Config{DataDir: settings.Path, DSN: settings.DSN, Debug: settings.Debug, Logger: log}
	switch settings.Driver {
	case conf.DriverSQLite, "":
		return NewSQLiteManager(cfg)
	case conf.DriverMySQL:
		return NewMySQLManager(cfg)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// NewSQLiteManager opens (creating if needed) the sqlite file in cfg.DataDir.
func NewSQLiteManager(cfg Config) (Manager, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("sqlite data directory is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(cfg.DataDir, SQLiteFileName)
	dsn := fmt.Sprintf("file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, wrapOpenError(err, conf.DriverSQLite)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	return &manager{db: db, dialect: conf.DriverSQLite, log: loggerOrNop(cfg.Logger)}, nil
}

// NewMySQLManager connects to cfg.DSN. parseTime is forced on so timestamps
// scan into time.Time.
func NewMySQLManager(cfg Config) (Manager, error) {
	dsnCfg, err := mysqldrv.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("driver", conf.DriverMySQL).
			Build()
	}
	dsnCfg.ParseTime = true
	if dsnCfg.Loc == nil {
		dsnCfg.Loc = time.UTC
	}

	db, err := gorm.Open(mysql.New(mysql.Config{DSNConfig: dsnCfg}), gormConfig(cfg))
	if err != nil {
		return nil, wrapOpenError(err, conf.DriverMySQL)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &manager{db: db, dialect: conf.DriverMySQL, log: loggerOrNop(cfg.Logger)}, nil
}

func gormConfig(cfg Config) *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(loggerOrNop(cfg.Logger), cfg.Debug),
		TranslateError: true,
	}
}

func wrapOpenError(err error, driver string) error {
	return errors.New(fmt.Errorf("failed to open %s database: %w", driver, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("driver", driver).
		Build()
}

func loggerOrNop(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.NewNop()
	}
	return log
}

func (m *manager) Initialize() error {
	if err := m.db.AutoMigrate(Models()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("dialect", m.dialect).
			Build()
	}
	m.log.Info("database schema ready", logger.String("dialect", m.dialect))
	return nil
}

func (m *manager) DB() *gorm.DB {
	return m.db
}

func (m *manager) Dialect() string {
	return m.dialect
}

func (m *manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
