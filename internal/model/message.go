package model

import "time"

// Vault は会話履歴の区画を表す。
// family、friendsは予約済みで、現時点では通常の区画と同様に扱う。
type Vault string

const (
	VaultNormal    Vault = "normal"
	VaultTemporary Vault = "temporary"
	VaultFamily    Vault = "family"
	VaultFriends   Vault = "friends"
)

// ParseVault は文字列をVaultに変換する。未知の値の場合はfalseを返す。
func ParseVault(s string) (Vault, bool) {
	switch Vault(s) {
	case VaultNormal, VaultTemporary, VaultFamily, VaultFriends:
		return Vault(s), true
	default:
		return "", false
	}
}

// Role はメッセージの発言者を表す。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModelLabel は推論サービスに渡す生成ポリシーのラベル。
type ModelLabel string

const (
	ModelNormalTeen  ModelLabel = "normal_teen"
	ModelNormalAdult ModelLabel = "normal_adult"
	ModelTempTeen    ModelLabel = "temp_teen"
	ModelTempAdult   ModelLabel = "temp_adult"
)

// ModelLabelFor はage modeとvaultの組み合わせからModelLabelを導出する。
func ModelLabelFor(mode AgeMode, vault Vault) ModelLabel {
	temp := vault == VaultTemporary
	switch {
	case mode == AgeModeTeen && temp:
		return ModelTempTeen
	case mode == AgeModeTeen:
		return ModelNormalTeen
	case temp:
		return ModelTempAdult
	default:
		return ModelNormalAdult
	}
}

// ChatMessage は会話の1ターンを表す。
type ChatMessage struct {
	ID        string
	UserID    string
	Vault     Vault
	Role      Role
	Content   string
	Model     string
	CreatedAt time.Time
}
