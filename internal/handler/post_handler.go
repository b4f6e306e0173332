package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/localize"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
)

// maxUploadSize は記事作成で受け付ける画像付きリクエストの上限。
const maxUploadSize = 10 << 20

// PostServiceInterface は記事ハンドラーが必要とするAPIクライアントのインターフェース。
type PostServiceInterface interface {
	ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error)
	CreatePost(ctx context.Context, in apiclient.PostInput) (*model.Post, error)
}

// PostHandler は記事の参照と作成のHTTPハンドラー。
type PostHandler struct {
	service     PostServiceInterface
	sanitizer   security.ContentSanitizerService
	apiBaseURL  string
	defaultLang model.LanguageCode
	adminPath   string
}

// NewPostHandler はPostHandlerを生成する。
// apiBaseURLは画像パスを絶対URLにするために使う。
func NewPostHandler(service PostServiceInterface, sanitizer security.ContentSanitizerService, apiBaseURL string, defaultLang model.LanguageCode, adminPath string) *PostHandler {
	if !localize.IsSupported(defaultLang) {
		defaultLang = model.DefaultLanguage
	}
	return &PostHandler{
		service:     service,
		sanitizer:   sanitizer,
		apiBaseURL:  apiBaseURL,
		defaultLang: defaultLang,
		adminPath:   adminPath,
	}
}

// postResponse は指定言語で解決済みの記事。
type postResponse struct {
	ID           int64              `json:"id"`
	ShopID       int64              `json:"shop_id"`
	ImageURL     string             `json:"image_url,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	Language     model.LanguageCode `json:"language"`
	Content      string             `json:"content"`
	OriginalText string             `json:"original_text"`
}

// createPostResponse は記事作成成功時のレスポンス。
type createPostResponse struct {
	Post     postResponse `json:"post"`
	Message  string       `json:"message"`
	Redirect string       `json:"redirect"`
}

// ListPosts は記事一覧を指定言語で返す。
// 翻訳がない言語では原文を返す。APIサーバーが失敗した場合は空の一覧を返す。
// GET /posts?lang=ko&skip=0&limit=100
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	lang := h.defaultLang
	if raw := r.URL.Query().Get("lang"); raw != "" {
		lang = model.LanguageCode(strings.ToLower(raw))
		if !localize.IsSupported(lang) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("lang: "+raw))
			return
		}
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", apiclient.DefaultPageLimit)

	posts, err := h.service.ListPosts(r.Context(), skip, limit)
	if err != nil {
		logReadFailure(r, "posts", err)
		posts = nil
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, h.toPostResponse(p, lang))
	}
	writeJSON(w, http.StatusOK, out)
}

// Languages は選択可能な表示言語を返す。
// GET /languages
func (h *PostHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, localize.Languages)
}

// CreatePost は写真とコメントから記事を作成する。
// POST /admin/posts（multipart: shop_id, text, image）
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("multipartの解析に失敗しました"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	rawID := r.FormValue("shop_id")
	shopID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || shopID <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidShopIDError(rawID))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("image (required)"))
		return
	}
	defer file.Close()

	r = upstreamContext(r)
	post, err := h.service.CreatePost(r.Context(), apiclient.PostInput{
		ShopID:   shopID,
		Text:     r.FormValue("text"),
		Filename: header.Filename,
		Image:    file,
	})
	if err != nil {
		handleUpstreamError(w, r, err, model.MsgPostCreateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, createPostResponse{
		Post:     h.toPostResponse(*post, model.SourceLanguage),
		Message:  model.MsgPostCreated,
		Redirect: h.adminPath,
	})
}

func (h *PostHandler) toPostResponse(p model.Post, lang model.LanguageCode) postResponse {
	return postResponse{
		ID:           p.ID,
		ShopID:       p.ShopID,
		ImageURL:     p.ImageURL(h.apiBaseURL),
		CreatedAt:    p.CreatedAt.Time,
		Language:     lang,
		Content:      localize.ResolveDisplay(p, lang, h.sanitizer.Sanitize),
		OriginalText: h.sanitizer.Sanitize(p.OriginalText),
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// logReadFailure は一覧取得の失敗を記録する。画面には空の一覧を出す。
func logReadFailure(r *http.Request, resource string, err error) {
	slog.Error("failed to load list from upstream",
		slog.String("resource", resource),
		slog.Int("upstream_status", apiclient.StatusOf(err)),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
}
