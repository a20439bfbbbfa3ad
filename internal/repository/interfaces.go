// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/relateai/relateai/internal/model"
)

// ErrPasscodeAlreadySet はパスコード設定済みのユーザーにパスコードを書き込もうとした場合のエラー。
var ErrPasscodeAlreadySet = errors.New("age handling passcode is already set")

// IdentityFields は外部IdPから取得するユーザー属性。
// ログインのたびにusersレコードへ上書き反映する。
type IdentityFields struct {
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateIdentityFields はIdP由来の属性を更新する。見つからない場合はnilを返す。
	UpdateIdentityFields(ctx context.Context, id string, fields IdentityFields) (*model.User, error)

	// UpdateProfile はプロフィールを部分更新する。
	// ageModeがnilでない場合はage_modeも同時に更新する。見つからない場合はnilを返す。
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, ageMode *model.AgeMode) (*model.User, error)

	// UpdateSettings は設定を部分更新する。見つからない場合はnilを返す。
	// PasscodeHashは未設定のユーザーにのみ書き込み、設定済みの場合はErrPasscodeAlreadySetを返す。
	UpdateSettings(ctx context.Context, id string, update model.SettingsUpdate) (*model.User, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindUserByIdentity はproviderとprovider_user_idに紐付くユーザーを取得する。
	// 紐付けが存在しない場合はnilを返す。
	FindUserByIdentity(ctx context.Context, provider, providerUserID string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ChatMessageRepository はvault単位の会話ログの永続化インターフェース。
// 追記と一括削除のみを提供し、既存メッセージの更新は行わない。
type ChatMessageRepository interface {
	// ListByUserAndVault はユーザーとvaultに属するメッセージを作成順（昇順）で返す。
	// 該当がない場合は空スライスを返す。
	ListByUserAndVault(ctx context.Context, userID string, vault model.Vault) ([]*model.ChatMessage, error)

	// Create はメッセージを1件追加し、生成されたIDと作成日時を設定する。
	Create(ctx context.Context, msg *model.ChatMessage) error

	// DeleteTemporaryByUserID はユーザーのtemporary vaultのメッセージを全て削除し、削除件数を返す。
	DeleteTemporaryByUserID(ctx context.Context, userID string) (int64, error)
}
