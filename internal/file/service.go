// Package file はファイルアップロード・一覧取得のドメインロジックを提供する。
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tunebox/internal/model"
	"github.com/hitoshi/tunebox/internal/policy"
	"github.com/hitoshi/tunebox/internal/repository"
	"github.com/hitoshi/tunebox/internal/storage"
)

// sniffLen はMIMEタイプ判定に使用する先頭バイト数。
// net/httpのコンテンツスニッフィングが参照する最大長に合わせる。
const sniffLen = 512

// ServiceConfig はファイルサービスの設定。
type ServiceConfig struct {
	// MaxSize はアップロード可能な最大ファイルサイズ（バイト）。
	MaxSize int64
	// AllowedTypes は許可するMIMEタイプの一覧。
	// 検査は申告された拡張子ではなく、実際のコンテンツ先頭バイトに対して行う。
	AllowedTypes []string
}

// Service はファイル管理のサービス層。
type Service struct {
	fileRepo repository.FileRepository
	userRepo repository.UserRepository
	store    storage.FileStore
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	store storage.FileStore,
	config ServiceConfig,
) *Service {
	return &Service{
		fileRepo: fileRepo,
		userRepo: userRepo,
		store:    store,
		config:   config,
	}
}

// Upload はファイルをアップロードする。常に操作主体自身のファイルとして保存する。
// MIMEタイプとサイズの検査はDBレコード作成・ディスク書き込みより前に行う。
// ディスク書き込みに失敗した場合は、作成済みのDBレコードと書きかけの
// ファイルを補償処理で取り除く（2リソースにまたがる擬似トランザクション）。
func (s *Service) Upload(ctx context.Context, actor *model.User, name, originalFilename string, size int64, r io.Reader) (*model.File, error) {
	// 1. 先頭バイトからMIMEタイプを判定する
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read file head: %w", err)
	}
	head = head[:n]

	detected := http.DetectContentType(head)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		mediaType = detected
	}

	if !s.isAllowedType(mediaType) {
		return nil, model.NewFileTypeNotAllowedError(mediaType)
	}

	// 2. サイズ上限を検査する
	if size > s.config.MaxSize {
		return nil, model.NewFileTooLargeError(s.config.MaxSize)
	}

	// 3. 保存先パスを確定し、DBレコードを作成する
	// 保存名は推測できないようuuidとし、元ファイル名は拡張子のみ引き継ぐ
	storedName := uuid.New().String() + filepath.Ext(originalFilename)
	path := s.store.PathFor(actor.ID, storedName)

	now := time.Now()
	file := &model.File{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		Name:      name,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		slog.Error("failed to create file record", slog.String("error", err.Error()))
		return nil, model.NewUploadFailedError()
	}

	// 4. ディスクに書き込む（判定に使った先頭バイトも含めて保存する）
	if _, err := s.store.Save(actor.ID, storedName, io.MultiReader(bytes.NewReader(head), r)); err != nil {
		slog.Error("failed to write uploaded file, rolling back",
			slog.String("file_id", file.ID),
			slog.String("error", err.Error()),
		)

		// 補償処理: DBレコードと書きかけのファイルを取り除く
		if delErr := s.fileRepo.DeleteByID(ctx, file.ID); delErr != nil {
			slog.Error("failed to roll back file record", slog.String("error", delErr.Error()))
		}
		if rmErr := s.store.Remove(path); rmErr != nil {
			slog.Error("failed to remove partial file", slog.String("error", rmErr.Error()))
		}

		return nil, model.NewUploadFailedError()
	}

	slog.Info("file uploaded",
		slog.String("file_id", file.ID),
		slog.String("user_id", actor.ID),
		slog.Int64("size", size),
		slog.String("mime_type", mediaType),
	)

	return file, nil
}

// List は指定ユーザーの所有ファイル一覧を返す。
// targetIDが空の場合は操作主体自身のファイルを返す。
// 他ユーザーを指定した場合、対象の存在確認を権限確認より先に行う（現行仕様を維持）。
func (s *Service) List(ctx context.Context, actor *model.User, targetID string) ([]*model.File, error) {
	id := targetID
	if id == "" {
		id = actor.ID
	}

	if targetID != "" {
		target, err := s.userRepo.FindByID(ctx, targetID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if target == nil {
			return nil, model.NewUserNotFoundError()
		}
	}

	if !policy.CanListFiles(actor, id) {
		return nil, model.NewForbiddenError()
	}

	return s.fileRepo.ListByUserID(ctx, id)
}

// isAllowedType は許可リストとの照合を行う。
func (s *Service) isAllowedType(mediaType string) bool {
	for _, allowed := range s.config.AllowedTypes {
		if allowed == mediaType {
			return true
		}
	}
	return false
}
