package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/glassworks/authcore/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// GormCredentialStore persists credential records through gorm.
type GormCredentialStore struct {
	db *gorm.DB
}

func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

func (s *GormCredentialStore) FindByID(ctx context.Context, id uint) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.WithContext(ctx).First(&cred, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *GormCredentialStore) FindByUsername(ctx context.Context, username string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *GormCredentialStore) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *GormCredentialStore) Persist(ctx context.Context, cred *model.Credential) error {
	err := s.db.WithContext(ctx).Save(cred).Error
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		switch {
		case strings.Contains(mysqlErr.Message, "username"):
			return ErrUsernameTaken
		case strings.Contains(mysqlErr.Message, "email"):
			return ErrEmailRegistered
		}
	}
	return err
}

func (s *GormCredentialStore) UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&model.Credential{}).
		Where("LOWER(username) = ?", strings.ToLower(username))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (s *GormCredentialStore) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&model.Credential{}).
		Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (s *GormCredentialStore) UpdateLoginState(ctx context.Context, id uint, version uint64, state LoginState) error {
	updates := map[string]interface{}{
		"failed_attempts": state.FailedAttempts,
		"locked_until":    state.LockedUntil,
		"version":         version + 1,
	}
	if state.LastLogin != nil {
		updates["last_login"] = state.LastLogin
	}
	ret := s.db.WithContext(ctx).Model(&model.Credential{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if ret.Error != nil {
		return ret.Error
	}
	if ret.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *GormCredentialStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	ret := s.db.WithContext(ctx).Model(&model.Credential{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if ret.Error != nil {
		return ret.Error
	}
	if ret.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
