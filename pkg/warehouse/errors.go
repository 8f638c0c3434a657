package warehouse

import (
	"errors"
	"fmt"
)

// Common engine errors
// エンジン共通のエラー定義

var (
	// ErrWarehouseNotFound is returned when a warehouse doesn't exist
	// 倉庫が存在しない場合のエラー
	ErrWarehouseNotFound = errors.New("倉庫が見つかりません")

	// ErrMaterialNotFound is returned when a material doesn't exist in the
	// target warehouse
	// 対象倉庫に資材が存在しない場合のエラー
	ErrMaterialNotFound = errors.New("資材が見つかりません")

	// ErrProductNotFound is returned when a product doesn't exist
	// 商品が存在しない場合のエラー
	ErrProductNotFound = errors.New("商品が見つかりません")

	// ErrTransferRequestNotFound is returned when a transfer request doesn't exist
	// 移動申請が存在しない場合のエラー
	ErrTransferRequestNotFound = errors.New("移動申請が見つかりません")

	// ErrInsufficientStock is returned when a debit would drive quantity
	// below zero
	// 控除によって在庫がマイナスになる場合のエラー
	ErrInsufficientStock = errors.New("在庫が不足しています")

	// ErrDuplicateID is returned when adding an entity whose id already exists
	// 既存IDの実体を追加しようとした場合のエラー
	ErrDuplicateID = errors.New("IDは既に存在します")

	// ErrProductUnavailable is returned when consuming a product flagged
	// unavailable
	// 提供停止中の商品を消費しようとした場合のエラー
	ErrProductUnavailable = errors.New("商品は現在提供されていません")

	// ErrPackagingNotConfigured is returned when package-based entry is used
	// on a material without packaging fields
	// 梱包情報のない資材に梱包単位入力を使った場合のエラー
	ErrPackagingNotConfigured = errors.New("梱包単位が設定されていません")
)

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// BusinessRuleError represents a business rule violation
// ビジネスルール違反を表現
type BusinessRuleError struct {
	Rule    string `json:"rule"`    // ルール名
	Message string `json:"message"` // エラーメッセージ
	Context string `json:"context"` // コンテキスト情報
}

func (e BusinessRuleError) Error() string {
	return fmt.Sprintf("ビジネスルール違反 [%s]: %s (コンテキスト: %s)", e.Rule, e.Message, e.Context)
}

// StorageError represents a persistence collaborator error
// 永続化コラボレータのエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewBusinessRuleError creates a new business rule error
// 新しいビジネスルールエラーを作成
func NewBusinessRuleError(rule, message, context string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
