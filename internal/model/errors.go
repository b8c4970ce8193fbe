// Package model はドメインモデルとエラー分類を定義する。
package model

import (
	"errors"
	"fmt"
)

// PollError はポーリングサイクル中に発生するエラーの統一フォーマットを表す。
// Codeでエラー分類を識別し、errors.Isで定義済みセンチネルと照合できる。
type PollError struct {
	Code    string // エラーコード
	Message string // チャットにもそのまま送られるメッセージ
	Err     error  // 原因（任意）
}

// Error はerrorインターフェースを実装する。
func (e *PollError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *PollError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
func (e *PollError) Is(target error) bool {
	var t *PollError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeHTTPStatus    = "HTTP_STATUS_ERROR"
	ErrCodeTypeKind      = "TYPE_KIND_ERROR"
	ErrCodeSchema        = "SCHEMA_ERROR"
	ErrCodeUnknownStatus = "UNKNOWN_STATUS_ERROR"
	ErrCodeMissingField  = "MISSING_FIELD_ERROR"
	ErrCodeDelivery      = "DELIVERY_ERROR"
)

// errors.Is で照合するためのセンチネル。
var (
	ErrNetwork       = &PollError{Code: ErrCodeNetwork}
	ErrHTTPStatus    = &PollError{Code: ErrCodeHTTPStatus}
	ErrTypeKind      = &PollError{Code: ErrCodeTypeKind}
	ErrSchema        = &PollError{Code: ErrCodeSchema}
	ErrUnknownStatus = &PollError{Code: ErrCodeUnknownStatus}
	ErrMissingField  = &PollError{Code: ErrCodeMissingField}
	ErrDelivery      = &PollError{Code: ErrCodeDelivery}
)

// ErrCode はエラーコードを返す。HTTPStatusErrorなど埋め込み先にも昇格する。
func (e *PollError) ErrCode() string {
	return e.Code
}

// ErrorCode はエラーチェーンからPollErrorのコードを取り出す。
// PollErrorを含まない場合は"UNKNOWN"を返す。
func ErrorCode(err error) string {
	var coded interface{ ErrCode() string }
	if errors.As(err, &coded) {
		return coded.ErrCode()
	}
	return "UNKNOWN"
}

// NewNetworkError はAPIへのリクエスト自体が失敗した場合のエラーを生成する。
func NewNetworkError(err error) *PollError {
	return &PollError{
		Code:    ErrCodeNetwork,
		Message: "Ошибка при запросе к API",
		Err:     err,
	}
}

// HTTPStatusError はAPIが200以外を返した場合のエラー。
// Bodyはログ用で、チャットへ送られるError()には含めない。
type HTTPStatusError struct {
	PollError
	StatusCode int
	Body       string
}

// NewHTTPStatusError はHTTPステータスエラーを生成する。
// bodyにはレスポンスボディの先頭部分を渡す（空でもよい）。
func NewHTTPStatusError(statusCode int, body string) *HTTPStatusError {
	return &HTTPStatusError{
		PollError: PollError{
			Code:    ErrCodeHTTPStatus,
			Message: fmt.Sprintf("Ошибка при запросе к API: код ответа %d", statusCode),
		},
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewTypeKindError は値の型が期待と異なる場合のエラーを生成する。
func NewTypeKindError(what string, err error) *PollError {
	return &PollError{
		Code:    ErrCodeTypeKind,
		Message: fmt.Sprintf("Неверный тип данных в ответе API: %s", what),
		Err:     err,
	}
}

// NewSchemaError は必須キーが欠けている場合のエラーを生成する。
func NewSchemaError(key string) *PollError {
	return &PollError{
		Code:    ErrCodeSchema,
		Message: fmt.Sprintf("В ответе API отсутствует ключ %q", key),
	}
}

// NewUnknownStatusError は未知のレビューステータスのエラーを生成する。
func NewUnknownStatusError(status string) *PollError {
	return &PollError{
		Code:    ErrCodeUnknownStatus,
		Message: fmt.Sprintf("Неизвестный статус домашней работы: %q", status),
	}
}

// NewMissingFieldError は宿題レコードに必須フィールドがない場合のエラーを生成する。
func NewMissingFieldError(field string) *PollError {
	return &PollError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("Домашняя работа не обнаружена: нет поля %q", field),
	}
}

// NewDeliveryError はチャットへのメッセージ送信失敗のエラーを生成する。
func NewDeliveryError(err error) *PollError {
	return &PollError{
		Code:    ErrCodeDelivery,
		Message: "Сообщение не отправлено",
		Err:     err,
	}
}
