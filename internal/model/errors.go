package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// チャットボットやWebアプリに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, booking, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeMasterNotFound = "MASTER_NOT_FOUND"
	ErrCodeSlotTaken      = "SLOT_TAKEN"
	ErrCodeOwnerConflict  = "OWNER_CONFLICT"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewInvalidInputError は必須項目の欠落や形式不正のエラーを生成する。
// reasonにはストレージ由来の情報を含めないこと。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力内容に不備があります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して、もう一度送信してください。",
	}
}

// NewForbiddenError は登録許可リストにないアカウントからの登録エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このアカウントにはマスター登録の権限がありません。",
		Category: "auth",
		Action:   "サロンの管理者に登録許可を依頼してください。",
	}
}

// NewMasterNotFoundError はマスター未検出エラーを生成する。
func NewMasterNotFoundError(masterID string) *APIError {
	return &APIError{
		Code:     ErrCodeMasterNotFound,
		Message:  fmt.Sprintf("指定されたマスターが見つかりません: %s", masterID),
		Category: "booking",
		Action:   "マスター一覧から選び直してください。",
	}
}

// NewSlotTakenError は予約枠が既に埋まっている場合のエラーを生成する。
// 致命的なエラーではなく、予約の受付不可として扱う。
func NewSlotTakenError(date, time string) *APIError {
	return &APIError{
		Code:     ErrCodeSlotTaken,
		Message:  fmt.Sprintf("この枠は既に予約されています: %s %s", date, time),
		Category: "booking",
		Action:   "別の日時を選んでください。",
	}
}

// NewOwnerConflictError は同一アカウントのマスターが既に存在する場合のエラーを生成する。
// 冪等な登録経路を通っていれば発生しない。
func NewOwnerConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerConflict,
		Message:  "このアカウントには既にマスターが登録されています。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーの統一レスポンスを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
