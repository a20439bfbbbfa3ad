package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/relateai/relateai/internal/model"
)

// ErrInvalidMessage は必須項目が欠けたメッセージを保存しようとした場合のエラー。
var ErrInvalidMessage = errors.New("chat message is missing required fields")

// PostgresChatMessageRepo はPostgreSQLを使用した会話ログリポジトリ。
type PostgresChatMessageRepo struct {
	db *sql.DB
}

// NewPostgresChatMessageRepo はPostgresChatMessageRepoを生成する。
func NewPostgresChatMessageRepo(db *sql.DB) *PostgresChatMessageRepo {
	return &PostgresChatMessageRepo{db: db}
}

// ListByUserAndVault はユーザーとvaultに属するメッセージを作成順で返す。
// 同一時刻のメッセージはseqで挿入順を保つ。
func (r *PostgresChatMessageRepo) ListByUserAndVault(ctx context.Context, userID string, vault model.Vault) ([]*model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, vault, role, content, model, created_at
		 FROM chat_messages
		 WHERE user_id = $1 AND vault = $2
		 ORDER BY created_at ASC, seq ASC`,
		userID, string(vault),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.ChatMessage, 0)
	for rows.Next() {
		var (
			m          model.ChatMessage
			vaultStr   string
			roleStr    string
			modelLabel sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &vaultStr, &roleStr, &m.Content, &modelLabel, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Vault = model.Vault(vaultStr)
		m.Role = model.Role(roleStr)
		m.Model = modelLabel.String
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}

// Create はメッセージを1件追加する。IDが空の場合は生成し、created_atはDBの値を設定する。
func (r *PostgresChatMessageRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	if msg.UserID == "" || msg.Vault == "" || msg.Role == "" || msg.Content == "" {
		return ErrInvalidMessage
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	var modelLabel sql.NullString
	if msg.Model != "" {
		modelLabel = sql.NullString{String: msg.Model, Valid: true}
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO chat_messages (id, user_id, vault, role, content, model)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		msg.ID, msg.UserID, string(msg.Vault), string(msg.Role), msg.Content, modelLabel,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// DeleteTemporaryByUserID はユーザーのtemporary vaultのメッセージを削除する。
func (r *PostgresChatMessageRepo) DeleteTemporaryByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE user_id = $1 AND vault = $2`,
		userID, string(model.VaultTemporary),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete temporary messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ChatMessageRepository = (*PostgresChatMessageRepo)(nil)
