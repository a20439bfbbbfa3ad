// Package chat はvault単位の会話と推論サービス連携のドメインロジックを提供する。
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/relateai/relateai/internal/inference"
	"github.com/relateai/relateai/internal/metrics"
	"github.com/relateai/relateai/internal/model"
	"github.com/relateai/relateai/internal/repository"
)

// maxModelLabelLength はchat_messages.modelカラムの長さ上限。
const maxModelLabelLength = 32

// SendInput はメッセージ送信のリクエスト内容。
type SendInput struct {
	Vault   string
	Content string
	Model   string
}

// SendResult は送信で保存されたユーザー発言と応答の組。
type SendResult struct {
	UserMessage      *model.ChatMessage
	AssistantMessage *model.ChatMessage
}

// Service は会話のサービス層。
type Service struct {
	repo      repository.ChatMessageRepository
	generator inference.Generator
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewService(repo repository.ChatMessageRepository, generator inference.Generator, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		generator: generator,
		metrics:   mc,
	}
}

// ModelLabel はage modeとvaultから推論サービスに渡すラベルを返す。
func (s *Service) ModelLabel(mode model.AgeMode, vault model.Vault) model.ModelLabel {
	return model.ModelLabelFor(mode, vault)
}

// ListMessages は指定vaultの会話履歴を作成順で返す。
// 未知のvaultはINVALID_VAULTとする。
func (s *Service) ListMessages(ctx context.Context, userID, vault string) ([]*model.ChatMessage, error) {
	v, ok := model.ParseVault(vault)
	if !ok {
		return nil, model.NewInvalidVaultError(vault)
	}

	messages, err := s.repo.ListByUserAndVault(ctx, userID, v)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	return messages, nil
}

// SendMessage はユーザー発言を保存し、推論サービスの応答を保存して両方を返す。
// 推論に失敗した場合もユーザー発言は保存済みのまま残る。
func (s *Service) SendMessage(ctx context.Context, userID string, in SendInput) (*SendResult, error) {
	var missing []string
	if in.Vault == "" {
		missing = append(missing, "vault")
	}
	if in.Content == "" {
		missing = append(missing, "content")
	}
	if in.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}

	vault, ok := model.ParseVault(in.Vault)
	if !ok {
		return nil, model.NewInvalidVaultError(in.Vault)
	}
	if len(in.Model) > maxModelLabelLength {
		return nil, model.NewValidationError([]model.FieldError{{
			Field:   "model",
			Message: fmt.Sprintf("must be at most %d characters", maxModelLabelLength),
		}})
	}

	userMsg := &model.ChatMessage{
		UserID:  userID,
		Vault:   vault,
		Role:    model.RoleUser,
		Content: in.Content,
		Model:   in.Model,
	}
	if err := s.repo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("ユーザーメッセージの保存に失敗しました: %w", err)
	}
	s.metrics.RecordMessagesCreated(string(vault), 1)

	start := time.Now()
	resp, err := s.generator.Generate(ctx, inference.Request{
		Message: in.Content,
		Model:   in.Model,
	})
	s.metrics.RecordInferenceLatency(time.Since(start))
	if err == nil && resp == nil {
		err = inference.ErrEmptyReply
	}
	if err != nil {
		s.metrics.RecordInferenceFailure(in.Model, failureReason(err))
		slog.Error("推論サービスからの応答取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("vault", string(vault)),
			slog.String("model", in.Model),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamFailureError()
	}
	s.metrics.RecordInferenceSuccess(in.Model)

	assistantMsg := &model.ChatMessage{
		UserID:  userID,
		Vault:   vault,
		Role:    model.RoleAssistant,
		Content: resp.Reply,
		Model:   in.Model,
	}
	if err := s.repo.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("応答メッセージの保存に失敗しました: %w", err)
	}
	s.metrics.RecordMessagesCreated(string(vault), 1)

	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// PurgeTemporary はユーザーのtemporary vaultのメッセージを全て削除する。
// 他のvaultには影響しない。
func (s *Service) PurgeTemporary(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteTemporaryByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("temporaryメッセージの削除に失敗しました: %w", err)
	}
	s.metrics.RecordTemporaryPurged(n)

	slog.Info("temporaryメッセージを削除しました",
		slog.String("user_id", userID),
		slog.Int64("deleted", n),
	)
	return n, nil
}

// failureReason は推論失敗をメトリクスのラベル値に分類する。
func failureReason(err error) string {
	var statusErr *inference.StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, inference.ErrEmptyReply):
		return "empty_reply"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "transport"
	}
}
