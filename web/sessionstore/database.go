package sessionstore

import (
	"context"
	"time"

	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/database/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type databaseBackend struct {
	db *gorm.DB
}

// NewDatabaseStore returns a store keeping session values in the sessions table.
// Expired rows are ignored on load and removed by Cleanup.
func NewDatabaseStore(db *gorm.DB, keyPairs ...[]byte) *Store {
	return newStore(&databaseBackend{db: db}, keyPairs...)
}

func (b *databaseBackend) load(ctx context.Context, id string) ([]byte, error) {
	var row model.Session
	err := b.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&row).Error
	if database.IsNotFound(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (b *databaseBackend) save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	row := &model.Session{
		Id:        id,
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
	}).Create(row).Error
}

func (b *databaseBackend) delete(ctx context.Context, id string) error {
	return b.db.WithContext(ctx).Delete(&model.Session{}, "id = ?", id).Error
}

func (b *databaseBackend) cleanup(ctx context.Context) (int64, error) {
	res := b.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}
