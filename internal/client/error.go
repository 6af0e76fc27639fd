package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error はAPIが2xx以外を返した場合のエラー。
// Fieldsはレスポンスのerrorオブジェクト（キー → メッセージ）。
type Error struct {
	StatusCode int
	Code       string
	Fields     map[string]string
}

func (e *Error) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, msg)
}

// Message はエラーメッセージをキー順に連結して返す。
func (e *Error) Message() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, " ")
}

// Has はerrorオブジェクトにkeyが含まれるかを返す。
func (e *Error) Has(key string) bool {
	_, ok := e.Fields[key]
	return ok
}

// AsError はerrが*Errorであればそれを返す。
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func decodeError(status int, data []byte) *Error {
	var body struct {
		Error map[string]string `json:"error"`
		Code  string            `json:"code"`
	}
	apiErr := &Error{StatusCode: status}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Fields = body.Error
	}
	if apiErr.Fields == nil {
		apiErr.Fields = map[string]string{}
	}
	return apiErr
}
