package model

import "time"

// メニューのカテゴリ。削除するとメニューも消える
type Category struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"type:varchar(100);not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description"`
	MenuItems   []MenuItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"-"`
}
