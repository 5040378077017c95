package model

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleRider    Role = "rider"
	RoleChef     Role = "chef"
	RoleCustomer Role = "customer"
)

// 有効なロールか
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleRider, RoleChef, RoleCustomer:
		return true
	}
	return false
}

// 全注文を閲覧できるロール
var rolesViewAllOrders = map[Role]bool{
	RoleAdmin: true,
	RoleChef:  true,
	RoleRider: true,
}

// 注文ステータスを進められるロール
var rolesAdvanceOrders = map[Role]bool{
	RoleAdmin: true,
	RoleChef:  true,
	RoleRider: true,
}

func (r Role) CanViewAllOrders() bool { return rolesViewAllOrders[r] }
func (r Role) CanAdvanceOrders() bool { return rolesAdvanceOrders[r] }

// キャンセルは管理者のみ
func (r Role) CanCancelOrders() bool { return r == RoleAdmin }

// メニュー・カテゴリの更新は管理者のみ
func (r Role) CanManageCatalog() bool { return r == RoleAdmin }

// ロール変更・監査ログ閲覧
func (r Role) CanManageUsers() bool { return r == RoleAdmin }

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(254);not null;default:''" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	TokenVersion int        `gorm:"not null;default:0" json:"-"`
	IsActive     bool       `gorm:"not null;default:true" json:"-"`
	LastLoginAt  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}
