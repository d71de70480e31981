// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はチャットボットやWebアプリから受け取った自由入力（氏名・電話番号・
// サービス名）からマークアップを取り除く。保存された値はWebアプリにそのまま表示されるため、
// bluemondayのStrictPolicyで全タグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフで、複数のgoroutineから共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyは "&" などをエスケープするため、保存前にエンティティを戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
