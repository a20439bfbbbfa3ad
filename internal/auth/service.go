// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relateai/relateai/internal/model"
	"github.com/relateai/relateai/internal/repository"
)

// ProviderGoogle はGoogle IdPの識別子。
const ProviderGoogle = "google"

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID  string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
	Provider        string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーはusersとidentitiesを同時に作成し、
// 登録済みユーザーはIdP由来の属性（メール、氏名、プロフィール画像）を最新の値で更新する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	existing, err := s.identRepo.FindUserByIdentity(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string
	if existing != nil {
		userID, err = s.refreshUser(ctx, existing.ID, userInfo)
	} else {
		userID, err = s.createUser(ctx, userInfo)
	}
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, userID, userInfo.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// refreshUser は既存ユーザーのIdP由来属性を上書きする。
func (s *Service) refreshUser(ctx context.Context, userID string, info *OAuthUserInfo) (string, error) {
	updated, err := s.userRepo.UpdateIdentityFields(ctx, userID, repository.IdentityFields{
		Email:           optional(info.Email),
		FirstName:       optional(info.FirstName),
		LastName:        optional(info.LastName),
		ProfileImageURL: optional(info.ProfileImageURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return "", fmt.Errorf("user %s linked to identity no longer exists", userID)
	}

	slog.Info("existing user logged in",
		slog.String("user_id", userID),
		slog.String("provider", info.Provider),
	)
	return userID, nil
}

// createUser はusersレコードとidentitiesレコードを同時に作成する。
func (s *Service) createUser(ctx context.Context, info *OAuthUserInfo) (string, error) {
	now := time.Now()
	newUser := &model.User{
		ID:              uuid.New().String(),
		Email:           optional(info.Email),
		FirstName:       optional(info.FirstName),
		LastName:        optional(info.LastName),
		ProfileImageURL: optional(info.ProfileImageURL),
		AgeMode:         model.AgeModeAdult,
		Theme:           model.ThemeAuto,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", info.Provider),
	)
	return newUser.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効な場合やユーザーが存在しない場合はUNAUTHORIZEDを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID, provider string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		Provider:  provider,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// optional は空文字をnilとして扱う。
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
