package handler

import (
	"net/http"

	"github.com/kamitori/connect/internal/model"
)

// AdminHandler は管理画面トップ（ダッシュボード）のハンドラー。
type AdminHandler struct {
	auth  AuthServiceInterface
	shops ShopServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(auth AuthServiceInterface, shops ShopServiceInterface) *AdminHandler {
	return &AdminHandler{auth: auth, shops: shops}
}

type dashboardResponse struct {
	Account *model.Account `json:"account"`
	Shops   []model.Shop   `json:"shops"`
}

// Dashboard はログイン中のアカウントと店舗一覧を返す。
// トークンが拒否された場合は401を返し、店舗一覧の失敗は空の一覧として扱う。
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	r = upstreamContext(r)

	acc, err := h.auth.Me(r.Context())
	if err != nil {
		handleUpstreamError(w, r, err, model.MsgLoginRequired)
		return
	}

	shops, err := h.shops.ListShops(r.Context())
	if err != nil {
		logReadFailure(r, "shops", err)
	}
	if shops == nil {
		shops = []model.Shop{}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{Account: acc, Shops: shops})
}
