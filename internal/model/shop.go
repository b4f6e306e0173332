// Package model はドメインモデルを定義する。
package model

// Shop は商店街に所属する店舗を表す。
// レコードの永続化はAPIサーバーが担う。
type Shop struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category,omitempty"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	MapURL         string `json:"map_url,omitempty"`
	ReservationURL string `json:"reservation_url,omitempty"`
}

// ShopInput は店舗の作成・更新リクエストのペイロード。
// 更新時は空のフィールドを送らない。
type ShopInput struct {
	Name           string `json:"name,omitempty" validate:"omitempty,max=255"`
	Category       string `json:"category,omitempty" validate:"omitempty,max=100"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty" validate:"omitempty,max=255"`
	MapURL         string `json:"map_url,omitempty" validate:"omitempty,url,max=500"`
	ReservationURL string `json:"reservation_url,omitempty" validate:"omitempty,url,max=500"`
}

// Account はログイン中の管理者アカウントを表す。
type Account struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
