// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はFreet本文からHTMLマークアップを取り除き、
// クライアントが本文をそのまま描画してもスクリプトが実行されないようにする。
// bluemondayのStrictPolicyで全タグを除去したうえで、エンティティを平文に戻す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿本文のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は本文から全てのタグを除去した平文を返す。
	// script, styleなどの要素は中身ごと除去される。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエスケープされたタグを繰り返し除去する上限回数。
const maxSanitizePasses = 5

// Sanitize は本文から全てのタグを除去した平文を返す。
// StrictPolicyは"&"なども"&amp;"にエスケープするため、結果は平文に戻す。
// 戻した結果に"&lt;script&gt;"由来のタグが現れる場合は、変化がなくなるまで繰り返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
