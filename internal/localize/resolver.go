// Package localize は記事の表示言語の選択と翻訳の解決を行う。
package localize

import (
	"sync"

	"github.com/kamitori/connect/internal/model"
)

// Language は言語セレクタの1項目。
type Language struct {
	Code  model.LanguageCode `json:"code"`
	Label string             `json:"label"`
	Flag  string             `json:"flag"`
}

// Languages は言語セレクタに並べる言語の一覧。表示順に並ぶ。
var Languages = []Language{
	{Code: "en", Label: "English", Flag: "🇺🇸"},
	{Code: "zh-tw", Label: "繁體中文", Flag: "🇹🇼"},
	{Code: "zh-cn", Label: "简体中文", Flag: "🇨🇳"},
	{Code: "ko", Label: "한국어", Flag: "🇰🇷"},
	{Code: "ja", Label: "日本語", Flag: "🇯🇵"},
}

// IsSupported はcodeが言語セレクタに含まれるかを返す。
func IsSupported(code model.LanguageCode) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Resolve は要求された言語で表示する本文を返す。
//
//  1. 要求言語の翻訳があればその内容
//  2. なければ原文（原文の言語が要求された場合も含む）
//
// 翻訳の内容が空の場合は原文にフォールバックする。
func Resolve(post model.Post, lang model.LanguageCode) string {
	for _, t := range post.Translations {
		if t.Language == lang && t.TranslatedContent != "" {
			return t.TranslatedContent
		}
	}
	return post.OriginalText
}

// ResolveDisplay はResolveと同じ規則で、各候補をcleanで整形してから選ぶ。
// 整形後に空になる翻訳（マークアップだけの翻訳など）はないものとして扱い、原文にフォールバックする。
func ResolveDisplay(post model.Post, lang model.LanguageCode, clean func(string) string) string {
	for _, t := range post.Translations {
		if t.Language != lang {
			continue
		}
		if c := clean(t.TranslatedContent); c != "" {
			return c
		}
	}
	return clean(post.OriginalText)
}

// Selections は記事ごとの表示言語を保持する。
// 記事ごとに独立し、未選択の記事は初期言語で表示する。
type Selections struct {
	mu       sync.RWMutex
	initial  model.LanguageCode
	selected map[int64]model.LanguageCode
}

// NewSelections は新しいSelectionsを生成する。initialが空の場合は英語。
func NewSelections(initial model.LanguageCode) *Selections {
	if initial == "" {
		initial = model.DefaultLanguage
	}
	return &Selections{
		initial:  initial,
		selected: make(map[int64]model.LanguageCode),
	}
}

// Get は記事の表示言語を返す。
func (s *Selections) Get(postID int64) model.LanguageCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lang, ok := s.selected[postID]; ok {
		return lang
	}
	return s.initial
}

// Set は記事の表示言語を変更する。他の記事には影響しない。
func (s *Selections) Set(postID int64, lang model.LanguageCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[postID] = lang
}

// DisplayContent は記事を現在の表示言語で解決し、cleanで整形した本文を返す。
func (s *Selections) DisplayContent(post model.Post, clean func(string) string) string {
	return ResolveDisplay(post, s.Get(post.ID), clean)
}
