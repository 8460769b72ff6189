// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 外部IdP（Yandex）のIDと1対1で紐付き、初回ログイン時に自動作成される。
// IsAdminは作成時に管理者メール許可リストから一度だけ決定し、通常の更新では変更しない。
type User struct {
	ID        string
	YandexID  string
	Username  string
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate はユーザー情報の部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type UserUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
}

// IsEmpty は更新対象フィールドが1つも指定されていない場合にtrueを返す。
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.FirstName == nil && u.LastName == nil
}
