package model

import "strings"

// Operation はリスト型フィールド（friends, members, posts）に対する更新操作。
type Operation string

const (
	// OperationAdd は要素が存在しない場合のみ末尾に追加する。
	OperationAdd Operation = "add"
	// OperationRemove は最初に一致した要素を削除する。存在しない場合は何もしない。
	OperationRemove Operation = "remove"
)

// ParseOperation は大文字小文字を区別せずに操作名を解析する。
// "add" / "remove" 以外はfalseを返す。
func ParseOperation(s string) (Operation, bool) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OperationAdd:
		return OperationAdd, true
	case OperationRemove:
		return OperationRemove, true
	default:
		return "", false
	}
}

// Apply はidsに操作を適用した新しいスライスと、変更があったかどうかを返す。
// 元のスライスは変更しない。
func (op Operation) Apply(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)

	switch op {
	case OperationAdd:
		for _, v := range out {
			if v == id {
				return out, false
			}
		}
		return append(out, id), true
	case OperationRemove:
		for i, v := range out {
			if v == id {
				return append(out[:i], out[i+1:]...), true
			}
		}
		return out, false
	default:
		return out, false
	}
}
