package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account is a registered chat user. Password holds the hash produced by
// auth.HashPassword, never the plaintext.
type Account struct {
	ID               uint64 `gorm:"primaryKey"`
	Username         string `gorm:"unique; not null"`
	Password         string `gorm:"not null"`
	RegistrationDate time.Time
	// Banned accounts keep their name reserved but can't log in.
	Banned    bool `gorm:"default:false"`
	DeletedAt gorm.DeletedAt
}

// FindAccountByUsername returns the live account registered as username, or
// nil if there is none.
func FindAccountByUsername(db *gorm.DB, username string) (*Account, error) {
	return firstAccount(db.Where("username = ?", username))
}

// FindUnscopedAccount is FindAccountByUsername including soft-deleted accounts.
func FindUnscopedAccount(db *gorm.DB, username string) (*Account, error) {
	return firstAccount(db.Unscoped().Where("username = ?", username))
}

func firstAccount(query *gorm.DB) (*Account, error) {
	var account Account
	if err := query.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns every live account ordered by username.
func ListAccounts(db *gorm.DB) ([]Account, error) {
	var accounts []Account
	if err := db.Order("username").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateAccount persists the Account record to the database, stamping the
// registration date if the caller didn't.
func CreateAccount(db *gorm.DB, account *Account) error {
	if account.RegistrationDate.IsZero() {
		account.RegistrationDate = time.Now().UTC()
	}
	return db.Create(account).Error
}

// SetAccountBanned bans or unbans an account.
func SetAccountBanned(db *gorm.DB, account *Account, banned bool) error {
	if err := db.Model(account).Update("banned", banned).Error; err != nil {
		return err
	}
	account.Banned = banned
	return nil
}

// DeleteAccount soft-deletes an Account record from the database.
func DeleteAccount(db *gorm.DB, account *Account) error {
	return db.Delete(account).Error
}

// PermanentlyDeleteAccount permanently deletes an Account record from the database.
func PermanentlyDeleteAccount(db *gorm.DB, account *Account) error {
	return db.Unscoped().Delete(account).Error
}
