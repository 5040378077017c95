package repository

import (
	"chefchain/internal/domain/model"
	"context"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（username重複はErrConflict）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。無ければErrNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	// ロールを変えてtoken_versionを+1
	UpdateRole(ctx context.Context, userID int64, role model.Role) error
}
