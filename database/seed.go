package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/authgate/authgate/database/model"
	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/crypto"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// SeedUser is one account entry of a seed file.
type SeedUser struct {
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
	Admin    bool   `yaml:"admin" json:"admin"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users" json:"users"`
}

// LoadSeedFile parses a YAML (.yaml, .yml) or JSON (.json) seed file.
func LoadSeedFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf seedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &sf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sf)
	default:
		return nil, fmt.Errorf("unsupported seed file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return sf.Users, nil
}

// SeedUsers creates the accounts listed in the seed file that do not exist yet.
// Existing accounts are left untouched. It returns the number of accounts created.
func SeedUsers(path string, hasher *crypto.Bcrypt) (int, error) {
	if db == nil {
		return 0, errors.New("database is not initialized")
	}
	users, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, u := range users {
		if u.Email == "" || u.Password == "" {
			logger.Warningf("seed: skipping entry without email or password")
			continue
		}
		var count int64
		if err := db.Model(&model.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		record := &model.User{Email: u.Email, PasswordHash: hash, IsAdmin: u.Admin}
		if err := db.Create(record).Error; err != nil {
			if IsDuplicateKey(err) {
				continue
			}
			return created, err
		}
		logger.Infof("seed: created account %s (admin=%v)", u.Email, u.Admin)
		created++
	}
	return created, nil
}
