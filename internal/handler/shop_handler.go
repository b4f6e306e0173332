package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
)

// ShopServiceInterface は店舗ハンドラーが必要とするAPIクライアントのインターフェース。
type ShopServiceInterface interface {
	ListShops(ctx context.Context) ([]model.Shop, error)
	GetShop(ctx context.Context, id int64) (*model.Shop, error)
	CreateShop(ctx context.Context, in model.ShopInput) (*model.Shop, error)
	UpdateShop(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error)
	DeleteShop(ctx context.Context, id int64) error
}

// ShopHandler は店舗の参照と管理のHTTPハンドラー。
type ShopHandler struct {
	service ShopServiceInterface
}

// NewShopHandler はShopHandlerを生成する。
func NewShopHandler(service ShopServiceInterface) *ShopHandler {
	return &ShopHandler{service: service}
}

// ListShops は店舗一覧を返す。APIサーバーが失敗した場合は空の一覧を返す。
// GET /shops, GET /admin/shops
func (h *ShopHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	r = upstreamContext(r)
	shops, err := h.service.ListShops(r.Context())
	if err != nil {
		logReadFailure(r, "shops", err)
		shops = []model.Shop{}
	}
	if shops == nil {
		shops = []model.Shop{}
	}
	writeJSON(w, http.StatusOK, shops)
}

// GetShop は店舗を1件返す。
// GET /shops/{id}, GET /admin/shops/{id}
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := parseShopID(w, r)
	if !ok {
		return
	}

	r = upstreamContext(r)
	shop, err := h.service.GetShop(r.Context(), id)
	if err != nil {
		h.handleShopError(w, r, id, err, model.MsgShopSaveFailed)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

// CreateShop は店舗を登録する。
// POST /admin/shops
func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeShopInput(w, r)
	if !ok {
		return
	}

	r = upstreamContext(r)
	shop, err := h.service.CreateShop(r.Context(), in)
	if err != nil {
		handleUpstreamError(w, r, err, model.MsgShopSaveFailed)
		return
	}
	writeJSON(w, http.StatusCreated, shop)
}

// UpdateShop は店舗を更新する。
// PUT /admin/shops/{id}
func (h *ShopHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	id, ok := parseShopID(w, r)
	if !ok {
		return
	}
	in, ok := decodeShopInput(w, r)
	if !ok {
		return
	}

	r = upstreamContext(r)
	shop, err := h.service.UpdateShop(r.Context(), id, in)
	if err != nil {
		h.handleShopError(w, r, id, err, model.MsgShopSaveFailed)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

// DeleteShop は店舗を削除する。確認はクライアント側で済ませている前提。
// DELETE /admin/shops/{id}
func (h *ShopHandler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	id, ok := parseShopID(w, r)
	if !ok {
		return
	}

	r = upstreamContext(r)
	if err := h.service.DeleteShop(r.Context(), id); err != nil {
		h.handleShopError(w, r, id, err, model.MsgShopDeleteFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) handleShopError(w http.ResponseWriter, r *http.Request, id int64, err error, fallback string) {
	if apiclient.StatusOf(err) == http.StatusNotFound {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewShopNotFoundError(id))
		return
	}
	handleUpstreamError(w, r, err, fallback)
}

// parseShopID はURLパラメータの店舗IDを読み取る。不正な場合は400を書き込んでfalseを返す。
func parseShopID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidShopIDError(raw))
		return 0, false
	}
	return id, true
}

func decodeShopInput(w http.ResponseWriter, r *http.Request) (model.ShopInput, bool) {
	var in model.ShopInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return in, false
	}
	return in, true
}
