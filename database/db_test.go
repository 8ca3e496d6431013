package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/authgate/authgate/config"
	"github.com/authgate/authgate/database/model"
	"github.com/authgate/authgate/util/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func initTestDB(t *testing.T) {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "authgate.db")},
	}
	require.NoError(t, InitDB(cfg))
	t.Cleanup(func() { _ = CloseDB() })
}

func TestInitDBMigratesTables(t *testing.T) {
	initTestDB(t)
	assert.True(t, GetDB().Migrator().HasTable(&model.User{}))
	assert.True(t, GetDB().Migrator().HasTable(&model.Session{}))
}

func TestUniqueEmailIsEnforced(t *testing.T) {
	initTestDB(t)
	require.NoError(t, GetDB().Create(&model.User{Email: "a@x.com", PasswordHash: "h"}).Error)

	err := GetDB().Create(&model.User{Email: "a@x.com", PasswordHash: "h2"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	// case-sensitive as stored
	require.NoError(t, GetDB().Create(&model.User{Email: "A@x.com", PasswordHash: "h3"}).Error)
}

func TestIsNotFound(t *testing.T) {
	initTestDB(t)
	var u model.User
	err := GetDB().Where("email = ?", "nobody@x.com").First(&u).Error
	assert.True(t, IsNotFound(err))
	assert.False(t, IsDuplicateKey(err))
	assert.False(t, IsDuplicateKey(nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedUsersYAML(t *testing.T) {
	initTestDB(t)
	path := writeFile(t, "seed.yaml", `
users:
  - email: root@x.com
    password: rootpass
    admin: true
  - email: plain@x.com
    password: plainpass
  - email: ""
    password: ignored
`)
	hasher := crypto.NewBcrypt(bcrypt.MinCost)

	created, err := SeedUsers(path, hasher)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var root model.User
	require.NoError(t, GetDB().Where("email = ?", "root@x.com").First(&root).Error)
	assert.True(t, root.IsAdmin)
	assert.True(t, hasher.Verify(root.PasswordHash, "rootpass"))

	// idempotent
	created, err = SeedUsers(path, hasher)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSeedUsersJSON(t *testing.T) {
	initTestDB(t)
	path := writeFile(t, "seed.json", `{"users":[{"email":"ops@x.com","password":"opspass","admin":true}]}`)

	created, err := SeedUsers(path, crypto.NewBcrypt(bcrypt.MinCost))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestLoadSeedFileRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "seed.ini", "users=")
	_, err := LoadSeedFile(path)
	assert.Error(t, err)
}
