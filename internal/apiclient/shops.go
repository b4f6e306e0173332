package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kamitori/connect/internal/model"
)

// ListShops は店舗一覧を返す。
// GET /shops
func (c *Client) ListShops(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	if err := c.doJSON(ctx, http.MethodGet, "/shops", nil, nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// GetShop はID指定で店舗を返す。
// GET /shops/{id}
func (c *Client) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	var shop model.Shop
	if err := c.doJSON(ctx, http.MethodGet, shopPath(id), nil, nil, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

// CreateShop は店舗を登録する。店舗名は必須。
// POST /shops（要ログイン）
func (c *Client) CreateShop(ctx context.Context, in model.ShopInput) (*model.Shop, error) {
	if err := c.validate.Var(in.Name, "required"); err != nil {
		return nil, model.NewValidationError("name (required)")
	}
	if err := c.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	var shop model.Shop
	if err := c.doJSON(ctx, http.MethodPost, "/shops", nil, in, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

// UpdateShop は店舗を更新する。空のフィールドは送信しない。
// PUT /shops/{id}（要ログイン）
func (c *Client) UpdateShop(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	var shop model.Shop
	if err := c.doJSON(ctx, http.MethodPut, shopPath(id), nil, in, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

// DeleteShop は店舗を削除する。
// DELETE /shops/{id}（要ログイン）
func (c *Client) DeleteShop(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, shopPath(id), nil, nil, nil)
}

func shopPath(id int64) string {
	return fmt.Sprintf("/shops/%d", id)
}

// pageQuery はskip/limitのクエリを組み立てる。
func pageQuery(skip, limit int) url.Values {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
