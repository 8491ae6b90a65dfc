package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dcrodman/epchat/internal/core/data"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCreateAccount(t *testing.T) {
	type args struct {
		username string
		password string
	}
	notFound := func(db *gorm.DB, username string) (*data.Account, error) { return nil, nil }
	tests := map[string]struct {
		dbFindFn   func(db *gorm.DB, username string) (*data.Account, error)
		dbCreateFn func(db *gorm.DB, account *data.Account) error
		args       args
		wantedErr  error
	}{
		"database_error": {
			dbFindFn:   notFound,
			dbCreateFn: func(db *gorm.DB, account *data.Account) error { return fmt.Errorf("database error") },
			args:       args{username: "test", password: "test"},
			wantedErr:  fmt.Errorf("database error"),
		},
		"lookup_error": {
			dbFindFn: func(db *gorm.DB, username string) (*data.Account, error) {
				return nil, fmt.Errorf("database error")
			},
			args:      args{username: "test", password: "test"},
			wantedErr: fmt.Errorf("error looking up account: database error"),
		},
		"name_taken_by_deleted_account": {
			dbFindFn: func(db *gorm.DB, username string) (*data.Account, error) {
				return &data.Account{Username: username}, nil
			},
			dbCreateFn: func(db *gorm.DB, account *data.Account) error {
				return fmt.Errorf("unexpected insert for %s", account.Username)
			},
			args:      args{username: "test", password: "secret"},
			wantedErr: ErrUsernameTaken,
		},
		"happy_path": {
			dbFindFn:   notFound,
			dbCreateFn: func(db *gorm.DB, account *data.Account) error { return nil },
			args:       args{username: "test", password: "secret"},
			wantedErr:  nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			originalCreateAccount, originalFindUnscoped := createAccount, findUnscopedAccount
			defer func() {
				createAccount, findUnscopedAccount = originalCreateAccount, originalFindUnscoped
			}()
			createAccount = tt.dbCreateFn
			findUnscopedAccount = tt.dbFindFn

			account, err := CreateAccount(nil, tt.args.username, tt.args.password)
			if (err == nil) != (tt.wantedErr == nil) {
				t.Fatalf("expected error to = %v, got = %v", tt.wantedErr, err)
			}
			if err != nil && err.Error() != tt.wantedErr.Error() {
				t.Fatalf("expected error to = %s, got = %s", tt.wantedErr, err)
			}

			if err == nil {
				if account.Username != tt.args.username {
					t.Errorf("expected account username = %s, got = %s", tt.args.username, account.Username)
				}
				if account.Password != HashPassword(tt.args.password) {
					t.Error("expected account password to equal hashed password")
				}
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	password := "password"
	hashed := HashPassword(password)

	if password == hashed {
		t.Fatalf("expected hashed password not to equal password")
	}

	for i := 0; i < 10; i++ {
		if h := HashPassword(password); hashed != h {
			t.Fatalf("password hashing is non-deterministic (expected %s, got %s)", hashed, h)
		}
	}
}

func TestAccountVerifier_VerifyAccount(t *testing.T) {
	type context struct {
		account *data.Account
		err     error
	}
	type args struct {
		username string
		password string
	}

	happyPathAccount := &data.Account{Username: "test", Password: HashPassword("test")}

	tests := map[string]struct {
		context context
		args    args
		wantErr error
	}{
		"database_error": {
			context{account: nil, err: fmt.Errorf("something exploded")},
			args{username: "test", password: "test"},
			ErrUnknown,
		},
		"no_account": {
			context{account: nil, err: nil},
			args{username: "test", password: "test"},
			ErrInvalidCredentials,
		},
		"invalid_password": {
			context{account: &data.Account{Username: "test", Password: "x"}, err: nil},
			args{username: "test", password: "test"},
			ErrInvalidCredentials,
		},
		"banned": {
			context{account: &data.Account{Username: "test", Password: HashPassword("test"), Banned: true}, err: nil},
			args{username: "test", password: "test"},
			ErrAccountBanned,
		},
		"happy": {
			context{account: happyPathAccount, err: nil},
			args{username: "test", password: "test"},
			nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			originalFindAccount := findAccount
			defer func() { findAccount = originalFindAccount }()

			findAccount = func(db *gorm.DB, username string) (*data.Account, error) {
				return tt.context.account, tt.context.err
			}

			v := &AccountVerifier{Logger: testLogger()}
			_, err := v.VerifyAccount(tt.args.username, tt.args.password)
			if err != tt.wantErr {
				t.Errorf("expected wantedErr = %v, got = %v", tt.wantErr, err)
			}
			if got := v.Verify(tt.args.username, tt.args.password); got != (tt.wantErr == nil) {
				t.Errorf("Verify() want = %v, got = %v", tt.wantErr == nil, got)
			}
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	existing := &data.Account{Username: "test"}
	tests := map[string]struct {
		account   *data.Account
		permanent bool
		wantSoft  bool
		wantHard  bool
		wantErr   error
	}{
		"missing_account": {account: nil, wantErr: ErrInvalidCredentials},
		"soft_delete":     {account: existing, wantSoft: true},
		"hard_delete":     {account: existing, permanent: true, wantHard: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			originalFind, originalSoft, originalHard := findAccount, softDeleteAccount, permanentlyDeleteAccount
			defer func() {
				findAccount, softDeleteAccount, permanentlyDeleteAccount = originalFind, originalSoft, originalHard
			}()

			var soft, hard bool
			findAccount = func(db *gorm.DB, username string) (*data.Account, error) { return tt.account, nil }
			softDeleteAccount = func(db *gorm.DB, a *data.Account) error { soft = true; return nil }
			permanentlyDeleteAccount = func(db *gorm.DB, a *data.Account) error { hard = true; return nil }

			err := DeleteAccount(nil, "test", tt.permanent)
			if err != tt.wantErr {
				t.Fatalf("expected error = %v, got = %v", tt.wantErr, err)
			}
			if soft != tt.wantSoft || hard != tt.wantHard {
				t.Errorf("expected soft/hard = %v/%v, got = %v/%v", tt.wantSoft, tt.wantHard, soft, hard)
			}
		})
	}
}

func TestBanAccount(t *testing.T) {
	tests := map[string]struct {
		account *data.Account
		banned  bool
		wantErr error
	}{
		"missing_account": {account: nil, banned: true, wantErr: ErrInvalidCredentials},
		"ban":             {account: &data.Account{Username: "test"}, banned: true},
		"lift":            {account: &data.Account{Username: "test", Banned: true}, banned: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			originalFind, originalSet := findAccount, setAccountBanned
			defer func() { findAccount, setAccountBanned = originalFind, originalSet }()

			var got *bool
			findAccount = func(db *gorm.DB, username string) (*data.Account, error) { return tt.account, nil }
			setAccountBanned = func(db *gorm.DB, a *data.Account, banned bool) error {
				got = &banned
				return nil
			}

			err := BanAccount(nil, "test", tt.banned)
			if err != tt.wantErr {
				t.Fatalf("expected error = %v, got = %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (got == nil || *got != tt.banned) {
				t.Errorf("expected the account's banned flag to be set to %v", tt.banned)
			}
		})
	}
}

func TestFileVerifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")
	contents := "alice secret\nbob hunter2\n\nmalformed\ncarol  spaced   \n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("error writing credentials file: %v", err)
	}

	v := &FileVerifier{Path: path, Logger: testLogger()}
	tests := map[string]struct {
		username, password string
		want               bool
	}{
		"valid":          {"alice", "secret", true},
		"second_line":    {"bob", "hunter2", true},
		"extra_spaces":   {"carol", "spaced", true},
		"wrong_password": {"alice", "hunter2", false},
		"unknown_user":   {"dave", "secret", false},
		"case_sensitive": {"Alice", "secret", false},
		"malformed_line": {"malformed", "", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := v.Verify(tt.username, tt.password); got != tt.want {
				t.Errorf("Verify(%q, %q) want = %v, got = %v", tt.username, tt.password, tt.want, got)
			}
		})
	}

	missing := &FileVerifier{Path: filepath.Join(t.TempDir(), "missing.txt"), Logger: testLogger()}
	if missing.Verify("alice", "secret") {
		t.Error("Verify() should fail when the credentials file is missing")
	}
}

type countingVerifier struct {
	calls  int
	result bool
}

func (c *countingVerifier) Verify(username, password string) bool {
	c.calls++
	return c.result
}

func TestCachingVerifier(t *testing.T) {
	backing := &countingVerifier{result: true}
	v := NewCachingVerifier(backing, time.Minute)

	for i := 0; i < 3; i++ {
		if !v.Verify("alice", "secret") {
			t.Fatal("Verify() want = true")
		}
	}
	if backing.calls != 1 {
		t.Errorf("expected 1 call to the backing verifier, got %d", backing.calls)
	}

	// A different password is a different cache entry.
	backing.result = false
	if v.Verify("alice", "wrong") {
		t.Error("Verify() with an uncached wrong password want = false")
	}
	if v.Verify("alice", "wrong") {
		t.Error("failed verifications must not be cached")
	}
	if backing.calls != 3 {
		t.Errorf("expected 3 calls to the backing verifier, got %d", backing.calls)
	}
}
