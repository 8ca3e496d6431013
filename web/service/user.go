package service

import (
	"context"
	"fmt"

	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/database/model"

	"gorm.io/gorm"
)

// CredentialStore persists user accounts. Lookups return (nil, nil) when no
// account matches.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
	// Insert stores user and sets its Id. A duplicate email yields ErrEmailTaken.
	Insert(ctx context.Context, user *model.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserService is the gorm backed CredentialStore.
type UserService struct {
	db *gorm.DB
}

var _ CredentialStore = (*UserService)(nil)

// NewUserService returns a UserService on db, or on the shared connection when db is nil.
func NewUserService(db *gorm.DB) *UserService {
	if db == nil {
		db = database.GetDB()
	}
	return &UserService{db: db}
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *UserService) FindByID(ctx context.Context, id int) (*model.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserService) first(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := s.db.WithContext(ctx).Model(model.User{}).
		Where(query, arg).
		First(user).
		Error
	if database.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Insert(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if database.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}
	return err
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(model.User{}).
		Where("email = ?", email).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns every account ordered by id.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Model(model.User{}).
		Order("id").
		Find(&users).
		Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
