// Package storage はアップロードファイルのディスク保存を提供する。
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore はファイル実体の保存先インターフェース。
type FileStore interface {
	// PathFor は保存した場合のファイルパスを返す。書き込みは行わない。
	// DBレコードを先に作成するアップロードフローで、保存前にパスを確定させるために使う。
	PathFor(userID, filename string) string

	// Save はreaderの内容をユーザーディレクトリ配下のfilenameに書き込み、保存先パスを返す。
	// 書き込みに失敗した場合、書きかけのファイルは残さない。
	Save(userID, filename string, r io.Reader) (string, error)

	// Remove は保存済みファイルを削除する。
	// すでに存在しない場合はエラーにしない（補償処理から冪等に呼べるようにするため）。
	Remove(path string) error

	// RemoveUserDir はユーザーのディレクトリと中身をすべて削除する。
	RemoveUserDir(userID string) error
}

// DiskStore はローカルファイルシステムを使用したFileStoreの実装。
// ファイルは <baseDir>/<userID>/<filename> に配置する。
type DiskStore struct {
	baseDir string
}

// NewDiskStore はDiskStoreを生成する。
func NewDiskStore(baseDir string) *DiskStore {
	return &DiskStore{baseDir: baseDir}
}

// PathFor は保存した場合のファイルパスを返す。
func (s *DiskStore) PathFor(userID, filename string) string {
	return filepath.Join(s.baseDir, userID, filename)
}

// Save はreaderの内容をユーザーディレクトリ配下に書き込む。
func (s *DiskStore) Save(userID, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.baseDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		// 書きかけのファイルを残さない
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return path, nil
}

// Remove は保存済みファイルを削除する。
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// RemoveUserDir はユーザーのディレクトリと中身をすべて削除する。
func (s *DiskStore) RemoveUserDir(userID string) error {
	if err := os.RemoveAll(filepath.Join(s.baseDir, userID)); err != nil {
		return fmt.Errorf("failed to remove user directory: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FileStore = (*DiskStore)(nil)
