// Package database opens the gorm connection shared by the credential store and the
// database session backend, and migrates the users and sessions tables.
package database

import (
	"errors"
	"log"
	"strings"

	"github.com/authgate/authgate/config"
	"github.com/authgate/authgate/database/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func initModels() error {
	models := []any{
		&model.User{},
		&model.Session{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// InitDB opens the configured database and migrates the schema.
func InitDB(dbConfig *config.DatabaseConfig) error {
	if err := dbConfig.ValidateConfig(); err != nil {
		return err
	}
	if err := dbConfig.EnsureDirectoryExists(); err != nil {
		return err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}

	var err error
	if dbConfig.IsPostgreSQL() {
		db, err = gorm.Open(postgres.Open(dbConfig.GetDSN()), c)
	} else {
		db, err = gorm.Open(sqlite.Open(dbConfig.GetDSN()), c)
	}
	if err != nil {
		return err
	}

	if dbConfig.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000;",
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA foreign_keys = ON;",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				return err
			}
		}
	}

	return initModels()
}

func CloseDB() error {
	if db != nil {
		if err := Checkpoint(); err != nil {
			log.Printf("error executing checkpoint: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		db = nil
		return sqlDB.Close()
	}
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports whether err is a unique constraint violation. Dialects that do
// not translate their errors are matched on the driver message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// Checkpoint flushes the SQLite WAL; it is a no-op on other dialects.
func Checkpoint() error {
	if db == nil || db.Dialector.Name() != "sqlite" {
		return nil
	}
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
