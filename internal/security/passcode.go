// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// パスコード長の制約。上限はbcryptが扱える入力のバイト数。
const (
	MinPasscodeLength = 4
	MaxPasscodeBytes  = 72
)

var (
	// ErrPasscodeTooShort はパスコードが最小文字数に満たない場合のエラー。
	ErrPasscodeTooShort = errors.New("passcode must be at least 4 characters")
	// ErrPasscodeTooLong はパスコードがMaxPasscodeBytesを超える場合のエラー。
	ErrPasscodeTooLong = errors.New("passcode must be at most 72 bytes")
)

// PasscodeHasher はパスコードのハッシュ化と照合を行う。
type PasscodeHasher struct {
	cost int
}

// NewPasscodeHasher はPasscodeHasherを生成する。
// costが0以下の場合はbcrypt.DefaultCostを使用する。
func NewPasscodeHasher(cost int) *PasscodeHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasscodeHasher{cost: cost}
}

// Hash はパスコードをbcryptでハッシュ化する。平文は保持しない。
func (h *PasscodeHasher) Hash(passcode string) (string, error) {
	if len([]rune(passcode)) < MinPasscodeLength {
		return "", ErrPasscodeTooShort
	}
	if len(passcode) > MaxPasscodeBytes {
		return "", ErrPasscodeTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passcode: %w", err)
	}
	return string(hash), nil
}

// Verify はパスコードがハッシュと一致するかを返す。
// 不一致はエラーではなくfalseとして扱う。
func (h *PasscodeHasher) Verify(hash, passcode string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify passcode: %w", err)
}
