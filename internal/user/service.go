// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/relateai/relateai/internal/model"
	"github.com/relateai/relateai/internal/repository"
	"github.com/relateai/relateai/internal/security"
)

// プロフィール項目の制約。上限はusersテーブルのカラム長に合わせる。
const (
	minPhoneLength = 10
	maxPhoneLength = 32
	maxNameLength  = 255
	minAge         = 13
	maxAge         = 120
)

// PasscodeHasher はパスコードのハッシュ化と照合のインターフェース。
type PasscodeHasher interface {
	Hash(passcode string) (string, error)
	Verify(hash, passcode string) (bool, error)
}

// TextCleaner はプロフィール項目のマークアップ除去インターフェース。
type TextCleaner interface {
	Clean(input string) string
}

// SettingsInput は設定更新のリクエスト内容。nilの項目は変更しない。
// Passcodeは平文で受け取り、保存前にハッシュ化する。
type SettingsInput struct {
	Theme              *string
	AgeHandlingEnabled *bool
	Passcode           *string
}

// Settings はユーザーの表示・age handling設定。
type Settings struct {
	Theme              model.Theme
	AgeHandlingEnabled bool
	PasscodeSet        bool
}

// Service はユーザー管理のサービス層。
// プロフィールと設定の検証・更新を行う。
type Service struct {
	userRepo  repository.UserRepository
	hasher    PasscodeHasher
	sanitizer TextCleaner
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, hasher PasscodeHasher, sanitizer TextCleaner) *Service {
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		sanitizer: sanitizer,
	}
}

// GetUser はユーザーを取得する。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// GetSettings はユーザーの設定を取得する。
func (s *Service) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return settingsOf(user), nil
}

// UpdateProfile はプロフィールを検証して部分更新する。
// 年齢が指定された場合はage_modeを再計算して同時に保存する。
// 検証エラーの場合は何も保存しない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	var fields []model.FieldError

	fields = appendMaxLength(fields, "firstName", update.FirstName, maxNameLength)
	fields = appendMaxLength(fields, "lastName", update.LastName, maxNameLength)
	if update.PhoneNumber != nil {
		switch n := utf8.RuneCountInString(*update.PhoneNumber); {
		case n < minPhoneLength:
			fields = append(fields, model.FieldError{
				Field:   "phoneNumber",
				Message: fmt.Sprintf("must be at least %d characters", minPhoneLength),
			})
		case n > maxPhoneLength:
			fields = append(fields, model.FieldError{
				Field:   "phoneNumber",
				Message: fmt.Sprintf("must be at most %d characters", maxPhoneLength),
			})
		}
	}
	if update.Age != nil && (*update.Age < minAge || *update.Age > maxAge) {
		fields = append(fields, model.FieldError{
			Field:   "age",
			Message: fmt.Sprintf("must be between %d and %d", minAge, maxAge),
		})
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	update.FirstName = s.clean(update.FirstName)
	update.LastName = s.clean(update.LastName)

	var ageMode *model.AgeMode
	if update.Age != nil {
		mode := model.AgeModeFor(*update.Age)
		ageMode = &mode
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update, ageMode)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateSettings は設定を検証して部分更新し、更新後のユーザーを返す。
// パスコードは一度だけ設定でき、初回の有効化にはパスコードが必要となる。
// 同時に設定された場合はリポジトリの条件付き更新により後着がPASSCODE_ALREADY_SETとなる。
func (s *Service) UpdateSettings(ctx context.Context, userID string, input SettingsInput) (*model.User, error) {
	var (
		fields []model.FieldError
		update model.SettingsUpdate
	)

	if input.Theme != nil {
		theme, ok := model.ParseTheme(*input.Theme)
		if !ok {
			fields = append(fields, model.FieldError{
				Field:   "theme",
				Message: "must be one of light, dark, gray, auto",
			})
		} else {
			update.Theme = &theme
		}
	}
	if input.Passcode != nil {
		switch {
		case utf8.RuneCountInString(*input.Passcode) < security.MinPasscodeLength:
			fields = append(fields, model.FieldError{
				Field:   "ageHandlingPasscode",
				Message: fmt.Sprintf("must be at least %d characters", security.MinPasscodeLength),
			})
		case len(*input.Passcode) > security.MaxPasscodeBytes:
			fields = append(fields, model.FieldError{
				Field:   "ageHandlingPasscode",
				Message: fmt.Sprintf("must be at most %d bytes", security.MaxPasscodeBytes),
			})
		}
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	update.AgeHandlingEnabled = input.AgeHandlingEnabled

	enabling := input.AgeHandlingEnabled != nil && *input.AgeHandlingEnabled
	if input.Passcode != nil || enabling {
		current, err := s.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if input.Passcode != nil && current.HasPasscode() {
			return nil, model.NewPasscodeAlreadySetError()
		}
		if enabling && input.Passcode == nil && !current.HasPasscode() {
			return nil, model.NewPasscodeRequiredError()
		}
	}

	if input.Passcode != nil {
		hash, err := s.hasher.Hash(*input.Passcode)
		if err != nil {
			return nil, fmt.Errorf("パスコードのハッシュ化に失敗しました: %w", err)
		}
		update.PasscodeHash = &hash
	}

	user, err := s.userRepo.UpdateSettings(ctx, userID, update)
	if errors.Is(err, repository.ErrPasscodeAlreadySet) {
		return nil, model.NewPasscodeAlreadySetError()
	}
	if err != nil {
		return nil, fmt.Errorf("設定の更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if update.PasscodeHash != nil {
		slog.Info("age handlingのパスコードを設定しました",
			slog.String("user_id", userID),
		)
	}

	return user, nil
}

// VerifyPasscode はパスコードが保存済みのハッシュと一致するかを返す。
// パスコード未設定の場合は常にfalseとなる。
func (s *Service) VerifyPasscode(ctx context.Context, userID, passcode string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.HasPasscode() {
		return false, nil
	}

	ok, err := s.hasher.Verify(*user.AgeHandlingPasscodeHash, passcode)
	if err != nil {
		return false, fmt.Errorf("パスコードの照合に失敗しました: %w", err)
	}
	return ok, nil
}

func (s *Service) clean(v *string) *string {
	if v == nil || s.sanitizer == nil {
		return v
	}
	cleaned := s.sanitizer.Clean(*v)
	return &cleaned
}

func appendMaxLength(fields []model.FieldError, name string, v *string, max int) []model.FieldError {
	if v == nil || utf8.RuneCountInString(*v) <= max {
		return fields
	}
	return append(fields, model.FieldError{
		Field:   name,
		Message: fmt.Sprintf("must be at most %d characters", max),
	})
}

func settingsOf(u *model.User) *Settings {
	return &Settings{
		Theme:              u.Theme,
		AgeHandlingEnabled: u.AgeHandlingEnabled,
		PasscodeSet:        u.HasPasscode(),
	}
}
