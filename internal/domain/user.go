package domain

import (
	"time"
)

type Role string

const (
	RolePlatformAdmin   Role = "平台管理员"
	RoleBusinessManager Role = "店长"
)

// User 是后台账号，店长只能操作 BusinessID 对应的商户，平台管理员的 BusinessID 为空
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	BusinessID   *int64    `json:"businessID"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

func (u *User) CanAccessBusiness(businessID int64) bool {
	if u.Role == RolePlatformAdmin {
		return true
	}
	return u.BusinessID != nil && *u.BusinessID == businessID
}
