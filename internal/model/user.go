// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
}

// Role はユーザーの権限を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。モデレーションAPIを利用できる。
	RoleAdmin Role = "admin"
)

// UserStatus は管理者による承認状態を表す。
type UserStatus string

const (
	// UserStatusPending は登録直後の承認待ち状態。
	UserStatusPending UserStatus = "pending"
	// UserStatusApproved は承認済み状態。
	UserStatusApproved UserStatus = "approved"
	// UserStatusRejected は拒否された状態。ログインできない。
	UserStatusRejected UserStatus = "rejected"
)

// IsAdmin は管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Claims は検証済みベアラートークンから取り出した認証情報。
type Claims struct {
	UserID int64
	Email  string
	Role   Role
}
