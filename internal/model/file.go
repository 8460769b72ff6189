package model

import "time"

// File はユーザーがアップロードしたファイルを表す。
// 所有者はちょうど1人で、ユーザー削除時にDB側のCASCADEでレコードも削除される。
type File struct {
	ID        string
	UserID    string
	Name      string
	Path      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
