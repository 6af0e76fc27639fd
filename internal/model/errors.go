// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Keyはレスポンスの error オブジェクトのキーとして使われ、
// クライアントは error.alreadyFriends のように原因を特定できる。
type APIError struct {
	Code     string // エラーコード
	Key      string // error オブジェクトのキー
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, not_found, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotLoggedIn         = "NOT_LOGGED_IN"
	ErrCodeAlreadyLoggedIn     = "ALREADY_LOGGED_IN"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeMissingParameter    = "MISSING_PARAMETER"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeInvalidPassword     = "INVALID_PASSWORD"
	ErrCodeEmptyRecipient      = "EMPTY_RECIPIENT"
	ErrCodeSelfFriend          = "SELF_FRIEND"
	ErrCodeAlreadyFriends      = "ALREADY_FRIENDS"
	ErrCodeNestNotFound        = "NEST_NOT_FOUND"
	ErrCodeInvalidNestName     = "INVALID_NEST_NAME"
	ErrCodeNestNameTooLong     = "NEST_NAME_TOO_LONG"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeTimeNotFound        = "TIME_NOT_FOUND"
	ErrCodeInvalidClock        = "INVALID_CLOCK"
	ErrCodeFreetNotFound       = "FREET_NOT_FOUND"
	ErrCodeInvalidFreetContent = "INVALID_FREET_CONTENT"
	ErrCodeFreetTooLong        = "FREET_TOO_LONG"
	ErrCodeInvalidOperation    = "INVALID_OPERATION"
)

// NewNotLoggedInError は未ログインエラーを生成する。
func NewNotLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLoggedIn,
		Key:      "notLoggedIn",
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAlreadyLoggedInError はログイン済みユーザーがログインや登録を試みた場合のエラーを生成する。
func NewAlreadyLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyLoggedIn,
		Key:      "alreadyLoggedIn",
		Message:  "既にログインしています。",
		Category: "auth",
		Action:   "ログアウトしてから再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報が一致しない場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Key:      "password",
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Key:      "body",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewMissingParameterError は必須パラメータが無い場合のエラーを生成する。
func NewMissingParameterError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingParameter,
		Key:      name,
		Message:  fmt.Sprintf("%s を指定してください。", name),
		Category: "validation",
		Action:   "必須パラメータを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Key:      "userNotFound",
		Message:  fmt.Sprintf("ユーザー %s は存在しません。", username),
		Category: "not_found",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewUsernameTakenError はユーザー名が既に使われている場合のエラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Key:      "username",
		Message:  fmt.Sprintf("ユーザー名 %s は既に使われています。", username),
		Category: "conflict",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidUsernameError はユーザー名の形式が不正な場合のエラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Key:      "username",
		Message:  "ユーザー名は空でない英数字（アンダースコア可）で指定してください。",
		Category: "validation",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewInvalidPasswordError はパスワードの形式が不正な場合のエラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Key:      "password",
		Message:  "パスワードは空白を含まない1文字以上の文字列で指定してください。",
		Category: "validation",
		Action:   "パスワードを確認してください。",
	}
}

// NewEmptyRecipientError はフレンド追加先のユーザー名が空の場合のエラーを生成する。
func NewEmptyRecipientError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyRecipient,
		Key:      "recipient",
		Message:  "フレンドに追加するユーザー名を指定してください。",
		Category: "validation",
		Action:   "recipient にユーザー名を指定してください。",
	}
}

// NewSelfFriendError は自分自身をフレンドに追加しようとした場合のエラーを生成する。
func NewSelfFriendError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFriend,
		Key:      "recipient",
		Message:  "自分自身をフレンドに追加することはできません。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewAlreadyFriendsError は既にフレンドである場合のエラーを生成する。
func NewAlreadyFriendsError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFriends,
		Key:      "alreadyFriends",
		Message:  fmt.Sprintf("%s とは既にフレンドです。", username),
		Category: "conflict",
		Action:   "フレンド一覧を確認してください。",
	}
}

// NewNestNotFoundError はNestが見つからない場合のエラーを生成する。
func NewNestNotFoundError(nestID string) *APIError {
	return &APIError{
		Code:     ErrCodeNestNotFound,
		Key:      "nestNotFound",
		Message:  fmt.Sprintf("Nest %s は存在しません。", nestID),
		Category: "not_found",
		Action:   "NestのIDを確認してください。",
	}
}

// NewInvalidNestNameError はNest名が空または空白のみの場合のエラーを生成する。
func NewInvalidNestNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidNestName,
		Key:      "name",
		Message:  "Nest名は1文字以上で指定してください。",
		Category: "validation",
		Action:   "空白以外の文字を含む名前を指定してください。",
	}
}

// NewNestNameTooLongError はNest名が長すぎる場合のエラーを生成する。
func NewNestNameTooLongError() *APIError {
	return &APIError{
		Code:     ErrCodeNestNameTooLong,
		Key:      "name",
		Message:  fmt.Sprintf("Nest名は%d文字以内で指定してください。", NestNameMaxLength),
		Category: "validation",
		Action:   "名前を短くしてください。",
	}
}

// NewForbiddenError は権限が無い操作のエラーを生成する。
// messageには拒否された操作の説明を渡す。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Key:      "permission",
		Message:  message,
		Category: "auth",
		Action:   "自分が所有または参加しているリソースのみ操作できます。",
	}
}

// NewTimeNotFoundError はTimeが見つからない場合のエラーを生成する。
func NewTimeNotFoundError(timeID string) *APIError {
	return &APIError{
		Code:     ErrCodeTimeNotFound,
		Key:      "timeNotFound",
		Message:  fmt.Sprintf("Time %s は存在しません。", timeID),
		Category: "not_found",
		Action:   "TimeのIDを確認してください。",
	}
}

// NewInvalidClockError は時刻の形式が不正な場合のエラーを生成する。
func NewInvalidClockError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidClock,
		Key:      field,
		Message:  fmt.Sprintf("無効な時刻です: %q", value),
		Category: "validation",
		Action:   "時刻はHH:MM形式（00:00から23:59）で指定してください。",
	}
}

// NewFreetNotFoundError はFreetが見つからない場合のエラーを生成する。
func NewFreetNotFoundError(freetID string) *APIError {
	return &APIError{
		Code:     ErrCodeFreetNotFound,
		Key:      "freetNotFound",
		Message:  fmt.Sprintf("Freet %s は存在しません。", freetID),
		Category: "not_found",
		Action:   "FreetのIDを確認してください。",
	}
}

// NewInvalidFreetContentError はFreetの本文が空の場合のエラーを生成する。
func NewInvalidFreetContentError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFreetContent,
		Key:      "content",
		Message:  "Freetの本文は1文字以上で指定してください。",
		Category: "validation",
		Action:   "本文を入力してください。",
	}
}

// NewFreetTooLongError はFreetの本文が長すぎる場合のエラーを生成する。
func NewFreetTooLongError(max int) *APIError {
	return &APIError{
		Code:     ErrCodeFreetTooLong,
		Key:      "content",
		Message:  fmt.Sprintf("Freetの本文は%d文字以内で指定してください。", max),
		Category: "validation",
		Action:   "本文を短くしてください。",
	}
}

// NewInvalidOperationError はoperationが add / remove 以外の場合のエラーを生成する。
func NewInvalidOperationError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOperation,
		Key:      "operation",
		Message:  fmt.Sprintf("無効な操作です: %q", operation),
		Category: "validation",
		Action:   "operation には add または remove を指定してください。",
	}
}
