package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/kamitori/connect/internal/model"
)

// DefaultPageLimit は記事一覧の1回の取得件数。
const DefaultPageLimit = 100

// PostInput はAI記事作成のリクエスト。画像は必須。
type PostInput struct {
	ShopID   int64     `validate:"gt=0"`
	Text     string    `validate:"required"`
	Filename string    `validate:"required"`
	Image    io.Reader `validate:"-"`
}

// ListPosts は記事一覧を翻訳付きで返す。
// GET /posts
func (c *Client) ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var posts []model.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts", pageQuery(skip, limit), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost は写真とコメントから記事を作成する。
// サーバー側でAIによる記事生成と翻訳が行われる。
// POST /posts（multipart: shop_id, text, image）
func (c *Client) CreatePost(ctx context.Context, in PostInput) (*model.Post, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.Image == nil {
		return nil, model.NewValidationError("image (required)")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("shop_id", strconv.FormatInt(in.ShopID, 10)); err != nil {
		return nil, fmt.Errorf("failed to write shop_id field: %w", err)
	}
	if err := mw.WriteField("text", in.Text); err != nil {
		return nil, fmt.Errorf("failed to write text field: %w", err)
	}
	fw, err := mw.CreateFormFile("image", filepath.Base(in.Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := io.Copy(fw, in.Image); err != nil {
		return nil, fmt.Errorf("failed to copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var post model.Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, &buf, mw.FormDataContentType(), &post); err != nil {
		return nil, err
	}
	return &post, nil
}
