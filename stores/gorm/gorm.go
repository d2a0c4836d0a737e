// Package gorm provides a database-backed token store for deployments that
// already carry a local database. The caller supplies the *gorm.DB.
package gorm

import (
	"time"

	"gorm.io/gorm"
)

// TokenModel is the single-row table holding the persisted bearer token.
type TokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	Slot      string `gorm:"uniqueIndex;size:64"`
	Token     string
	UpdatedAt time.Time
}

func (TokenModel) TableName() string { return "etuition_tokens" }

// AutoMigrate runs database migrations for the token table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&TokenModel{})
}

// TokenStore implements stores.TokenStore using GORM.
type TokenStore struct {
	db   *gorm.DB
	slot string
}

// NewTokenStore creates a token store writing to the given slot name.
// An empty slot defaults to "default".
func NewTokenStore(db *gorm.DB, slot string) *TokenStore {
	if slot == "" {
		slot = "default"
	}
	return &TokenStore{db: db, slot: slot}
}

func (s *TokenStore) Load() (string, error) {
	var model TokenModel
	err := s.db.First(&model, "slot = ?", s.slot).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.Token, nil
}

func (s *TokenStore) Store(token string) error {
	var model TokenModel
	err := s.db.First(&model, "slot = ?", s.slot).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&TokenModel{Slot: s.slot, Token: token}).Error
	}
	if err != nil {
		return err
	}
	model.Token = token
	return s.db.Save(&model).Error
}

func (s *TokenStore) Clear() error {
	return s.db.Where("slot = ?", s.slot).Delete(&TokenModel{}).Error
}
