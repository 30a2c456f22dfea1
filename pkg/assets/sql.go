package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoredAsset is one uploaded file kept in the SQL store.
type StoredAsset struct {
	Name     string `gorm:"primaryKey;size:16"`
	Data     []byte
	Size     uint
	Checksum string `gorm:"size:16"`
	Updated  time.Time
}

type SQLStore struct {
	db *gorm.DB
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&StoredAsset{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var asset StoredAsset
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Missing
	}
	if err != nil {
		return nil, err
	}

	if sum := Checksum(asset.Data); sum != asset.Checksum {
		return nil, fmt.Errorf("asset %s is corrupt: checksum %s != %s", key, sum, asset.Checksum)
	}

	return asset.Data, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, data []byte) error {
	asset := StoredAsset{
		Name:     key,
		Data:     data,
		Size:     uint(len(data)),
		Checksum: Checksum(data),
		Updated:  time.Now(),
	}

	return s.db.WithContext(ctx).Save(&asset).Error
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&StoredAsset{}).Error
}
