// Package policy は認可判定の純粋関数を提供する。
// 状態を持たず、(操作主体, 対象ID)のみから許可・不許可を決定する。
package policy

import "github.com/hitoshi/tunebox/internal/model"

// CanReadUser はプロフィール閲覧の可否を返す。
// 認証済みであれば誰のプロフィールでも閲覧できる（現行仕様）。
func CanReadUser(actor *model.User, targetID string) bool {
	return actor != nil
}

// CanUpdateUser はプロフィール更新の可否を返す。
// 本人または管理者のみ許可する。
func CanUpdateUser(actor *model.User, targetID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == targetID || actor.IsAdmin
}

// CanDeleteUser はユーザー削除の可否を返す。
// 管理者のみ許可する。
func CanDeleteUser(actor *model.User) bool {
	return actor != nil && actor.IsAdmin
}

// CanListFiles は指定ユーザーのファイル一覧閲覧の可否を返す。
// 本人または管理者のみ許可する。
// 対象ユーザーの存在確認は呼び出し側の責務（存在確認を権限確認より先に行う現行仕様を維持）。
func CanListFiles(actor *model.User, targetID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == targetID || actor.IsAdmin
}
