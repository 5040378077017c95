package repository

import (
	"chefchain/internal/domain/model"
	domainrepo "chefchain/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// usernameが重複したらErrConflict
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrConflict
		}
		return err
	}
	return nil
}

func (r *userGormRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	return r.findOne(ctx, "id = ?", userID)
}

func (r *userGormRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userGormRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrConflict
		}
		return err
	}
	return nil
}

// roleを変えて、token_versionを+1（古いトークンを失効させる）
func (r *userGormRepository) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"role":          role,
			"token_version": gorm.Expr("token_version + ?", 1),
		})

	if res.Error != nil {
		return res.Error
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}
