// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はAIが生成した記事本文・翻訳・チャット回答から
// マークアップを取り除き、プレーンテキストとして表示できる形にする。
// 生成テキストにはHTMLやスクリプトが混入し得るため、表示前に必ず通す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は生成テキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は全てのタグを除去し、エンティティを復元したプレーンテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// bluemondayのStrictPolicy（タグを一切許可しない）を使う。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は生成テキストをプレーンテキストに変換する。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// <br>は改行として残す
	raw = brReplacer.Replace(raw)
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

var brReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "<BR>", "\n")
