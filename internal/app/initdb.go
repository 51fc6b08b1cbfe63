package app

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/talkincode/toughportal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// getDatabase opens the contacts store. Type "sqlite" keeps the file under
// <workdir>/data unless database.name is an absolute path or ":memory:".
func getDatabase(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		maxConn   = cfg.MaxConn
		idleConn  = cfg.IdleConn
	)
	switch cfg.Type {
	case "sqlite":
		dsn := cfg.Name
		if dsn != ":memory:" && !filepath.IsAbs(dsn) {
			dsn = path.Join(workdir, "data", dsn+".db")
		}
		dialector = sqlite.Open(dsn)
		// one writer avoids SQLITE_BUSY under concurrent registrations
		maxConn, idleConn = 1, 1
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxConn > 0 {
		sqlDB.SetMaxOpenConns(maxConn)
	}
	if idleConn > 0 {
		sqlDB.SetMaxIdleConns(idleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
