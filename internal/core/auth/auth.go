package auth

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dcrodman/epchat/internal/core/data"
)

var (
	ErrUnknown            = errors.New("an unexpected error occurred, please contact your server administrator")
	ErrInvalidCredentials = errors.New("username/password combination not found")
	ErrAccountBanned      = errors.New("this account has been suspended")
	// ErrUsernameTaken is returned when registering a name that belongs to a
	// live or soft-deleted account.
	ErrUsernameTaken = errors.New("username is already registered")
)

// Verifier checks a username/password pair. The chat server treats it as an
// opaque synchronous lookup.
type Verifier interface {
	Verify(username, password string) bool
}

// Seams for tests.
var (
	findAccount              = data.FindAccountByUsername
	findUnscopedAccount      = data.FindUnscopedAccount
	createAccount            = data.CreateAccount
	softDeleteAccount        = data.DeleteAccount
	permanentlyDeleteAccount = data.PermanentlyDeleteAccount
	setAccountBanned         = data.SetAccountBanned
)

// AccountVerifier verifies logins against the Accounts table.
type AccountVerifier struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func (v *AccountVerifier) Verify(username, password string) bool {
	_, err := v.VerifyAccount(username, password)
	return err == nil
}

// VerifyAccount checks the Accounts table for the specified credentials
// combination and validates that the account is accessible.
func (v *AccountVerifier) VerifyAccount(username, password string) (*data.Account, error) {
	account, err := findAccount(v.DB, username)
	if err != nil {
		v.Logger.Warn("error in FindAccountByUsername: ", err)
		return nil, ErrUnknown
	}

	if account == nil || account.Password != HashPassword(password) {
		return nil, ErrInvalidCredentials
	} else if account.Banned {
		return nil, ErrAccountBanned
	}

	return account, nil
}

// FileVerifier verifies logins against a plaintext file containing one
// "name password" pair per line. The file is read on every call so edits
// take effect without a restart.
type FileVerifier struct {
	Path   string
	Logger *logrus.Logger
}

func (v *FileVerifier) Verify(username, password string) bool {
	f, err := os.Open(v.Path)
	if err != nil {
		v.Logger.Errorf("error opening credentials file %s: %v", v.Path, err)
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == username && fields[1] == password {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		v.Logger.Errorf("error reading credentials file %s: %v", v.Path, err)
	}
	return false
}

// CachingVerifier remembers successful verifications for a fixed TTL so that
// repeated logins don't hit the backing store. Failures are never cached.
type CachingVerifier struct {
	Verifier
	cache *gocache.Cache
}

func NewCachingVerifier(v Verifier, ttl time.Duration) *CachingVerifier {
	return &CachingVerifier{
		Verifier: v,
		cache:    gocache.New(ttl, 2*ttl),
	}
}

func (c *CachingVerifier) Verify(username, password string) bool {
	key := username + "\x00" + HashPassword(password)
	if _, ok := c.cache.Get(key); ok {
		return true
	}
	if !c.Verifier.Verify(username, password) {
		return false
	}
	c.cache.SetDefault(key, struct{}{})
	return true
}

// CreateAccount takes the specified credentials and creates a new record in
// the database, returning either the result or any errors encountered.
func CreateAccount(db *gorm.DB, username, password string) (*data.Account, error) {
	existing, err := findUnscopedAccount(db, username)
	if err != nil {
		return nil, fmt.Errorf("error looking up account: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}

	account := &data.Account{
		Username: username,
		Password: HashPassword(password),
	}

	if err := createAccount(db, account); err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount removes the account for username, either softly (the record
// remains but can't log in) or permanently.
func DeleteAccount(db *gorm.DB, username string, permanent bool) error {
	account, err := findAccount(db, username)
	if err != nil {
		return fmt.Errorf("error looking up account: %w", err)
	} else if account == nil {
		return ErrInvalidCredentials
	}

	if permanent {
		return permanentlyDeleteAccount(db, account)
	}
	return softDeleteAccount(db, account)
}

// BanAccount bans username, or lifts the ban if banned is false. Sessions that
// are already logged in are unaffected.
func BanAccount(db *gorm.DB, username string, banned bool) error {
	account, err := findAccount(db, username)
	if err != nil {
		return fmt.Errorf("error looking up account: %w", err)
	} else if account == nil {
		return ErrInvalidCredentials
	}
	return setAccountBanned(db, account, banned)
}

// HashPassword returns a version of password with the server's chosen hashing strategy.
func HashPassword(password string) string {
	hash := sha256.New()
	hash.Write([]byte(password))
	return hex.EncodeToString(hash.Sum(nil))
}
