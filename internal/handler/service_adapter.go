package handler

import (
	"context"

	"github.com/relateai/relateai/internal/chat"
	"github.com/relateai/relateai/internal/model"
	"github.com/relateai/relateai/internal/user"
)

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// UpdateProfile はプロフィールを部分更新する。
func (a *UserServiceAdapter) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	return a.svc.UpdateProfile(ctx, userID, update)
}

// GetSettings は設定をhandlerの型で返す。
func (a *UserServiceAdapter) GetSettings(ctx context.Context, userID string) (*settingsView, error) {
	s, err := a.svc.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toSettingsView(s), nil
}

// UpdateSettings はリクエストをuser.SettingsInputに変換して更新する。
func (a *UserServiceAdapter) UpdateSettings(ctx context.Context, userID string, req settingsRequest) (*model.User, error) {
	return a.svc.UpdateSettings(ctx, userID, user.SettingsInput{
		Theme:              req.Theme,
		AgeHandlingEnabled: req.AgeHandlingEnabled,
		Passcode:           req.AgeHandlingPasscode,
	})
}

// VerifyPasscode はパスコードを照合する。
func (a *UserServiceAdapter) VerifyPasscode(ctx context.Context, userID, passcode string) (bool, error) {
	return a.svc.VerifyPasscode(ctx, userID, passcode)
}

func toSettingsView(s *user.Settings) *settingsView {
	return &settingsView{
		Theme:              s.Theme,
		AgeHandlingEnabled: s.AgeHandlingEnabled,
		PasscodeSet:        s.PasscodeSet,
	}
}

// ChatServiceAdapter は chat.Service を MessageServiceInterface に適合させるアダプタ。
type ChatServiceAdapter struct {
	svc *chat.Service
}

// NewChatServiceAdapter はChatServiceAdapterを生成する。
func NewChatServiceAdapter(svc *chat.Service) *ChatServiceAdapter {
	return &ChatServiceAdapter{svc: svc}
}

// ListMessages はvaultの会話履歴を返す。
func (a *ChatServiceAdapter) ListMessages(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error) {
	return a.svc.ListMessages(ctx, userID, vault)
}

// SendMessage はリクエストをchat.SendInputに変換して送信する。
func (a *ChatServiceAdapter) SendMessage(ctx context.Context, userID string, req sendMessageRequest) (*sendMessageResult, error) {
	res, err := a.svc.SendMessage(ctx, userID, chat.SendInput{
		Vault:   req.Vault,
		Content: req.Content,
		Model:   req.Model,
	})
	if err != nil {
		return nil, err
	}
	return &sendMessageResult{
		UserMessage:      res.UserMessage,
		AssistantMessage: res.AssistantMessage,
	}, nil
}

// PurgeTemporary はtemporary vaultのメッセージを削除する。
func (a *ChatServiceAdapter) PurgeTemporary(ctx context.Context, userID string) (int64, error) {
	return a.svc.PurgeTemporary(ctx, userID)
}
