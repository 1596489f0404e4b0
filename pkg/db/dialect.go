package db

import (
	"fmt"

	puregosqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	TypePostgres     = "postgres"
	TypeMySQL        = "mysql"
	TypeSQLite       = "sqlite"
	TypeSQLiteMemory = "sqlite-memory"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Type {
	case TypeMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case TypePostgres:
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case TypeSQLite:
		path := cfg.Path
		if path == "" {
			path = "greentrack.db"
		}
		return sqlite.Open(path), nil
	case TypeSQLiteMemory:
		// pure-go driver, no cgo needed
		return puregosqlite.Open("file::memory:?cache=shared"), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}
