// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// LanguageCode は表示言語のコード（例: en, zh-tw）。
type LanguageCode string

const (
	// SourceLanguage は投稿原文の言語。
	SourceLanguage LanguageCode = "ja"
	// DefaultLanguage は記事カードの初期表示言語。
	DefaultLanguage LanguageCode = "en"
)

// Translation は記事の翻訳結果を表す。
// 言語コードは記事ごとに一意。
type Translation struct {
	Language          LanguageCode `json:"language"`
	TranslatedContent string       `json:"translated_content"`
}

// Post はAIが生成・翻訳した店舗の紹介記事を表す。
type Post struct {
	ID           int64         `json:"id"`
	ShopID       int64         `json:"shop_id"`
	ImagePath    string        `json:"image_path,omitempty"`
	CreatedAt    Timestamp     `json:"created_at"`
	OriginalText string        `json:"original_text"`
	Translations []Translation `json:"translations"`
}

// ImageURL は画像パスを表示用の絶対URLに変換する。
// 画像がない場合は空文字列を返す。既に絶対URLの場合はそのまま返す。
func (p Post) ImageURL(baseURL string) string {
	if p.ImagePath == "" {
		return ""
	}
	if strings.HasPrefix(p.ImagePath, "http://") || strings.HasPrefix(p.ImagePath, "https://") {
		return p.ImagePath
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(p.ImagePath, "/")
}

// Timestamp はAPIの日時。タイムゾーンなしの形式はUTCとして扱う。
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON はjson.Marshalerを実装する。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}
