package history

import (
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pescuma/minwatch/lib/model"
)

type sqlVersion struct {
	Fingerprint string `gorm:"primaryKey"`
	Source      string
}

func (sqlVersion) TableName() string {
	return "versions"
}

type sqlHistoryEntry struct {
	ID          uint `gorm:"primaryKey;autoIncrement"`
	Datetime    string
	Fingerprint string `gorm:"index"`
}

func (sqlHistoryEntry) TableName() string {
	return "history"
}

func openSqlite(path string) (*gorm.DB, error) {
	l := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: l,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %v", path)
	}

	err = db.AutoMigrate(&sqlVersion{}, &sqlHistoryEntry{})
	if err != nil {
		closeSqlite(db)
		return nil, err
	}

	return db, nil
}

func closeSqlite(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

func saveSqlite(path string, doc *Document) error {
	db, err := openSqlite(path)
	if err != nil {
		return err
	}
	defer closeSqlite(db)

	versions := lo.MapToSlice(doc.Versions, func(k model.Fingerprint, v string) *sqlVersion {
		return &sqlVersion{Fingerprint: string(k), Source: v}
	})
	entries := lo.Map(doc.History, func(e Entry, _ int) *sqlHistoryEntry {
		return &sqlHistoryEntry{Datetime: e.Datetime, Fingerprint: string(e.SHA256)}
	})

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sqlHistoryEntry{}).Error
		if err != nil {
			return err
		}

		err = tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sqlVersion{}).Error
		if err != nil {
			return err
		}

		if len(versions) > 0 {
			err = tx.CreateInBatches(versions, 100).Error
			if err != nil {
				return err
			}
		}

		if len(entries) > 0 {
			err = tx.CreateInBatches(entries, 100).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func loadSqlite(path string) (*Document, error) {
	_, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %v", path)
	}

	db, err := openSqlite(path)
	if err != nil {
		return nil, err
	}
	defer closeSqlite(db)

	var versions []*sqlVersion
	err = db.Find(&versions).Error
	if err != nil {
		return nil, err
	}

	var entries []*sqlHistoryEntry
	err = db.Order("id").Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return &Document{
		Versions: lo.Associate(versions, func(v *sqlVersion) (model.Fingerprint, string) {
			return model.Fingerprint(v.Fingerprint), v.Source
		}),
		History: lo.Map(entries, func(e *sqlHistoryEntry, _ int) Entry {
			return Entry{Datetime: e.Datetime, SHA256: model.Fingerprint(e.Fingerprint)}
		}),
	}, nil
}
