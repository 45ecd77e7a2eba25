package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"
	"gunpla-colorizer/pkg/colorutil"

	"go.uber.org/zap"
)

// Config locates the HTTP endpoints of the backend.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	UploadPath  string
	SegmentPath string
	RecolorPath string
	ImagesPath  string
}

// DefaultConfig points at a backend on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://127.0.0.1:8000",
		Timeout:     120 * time.Second,
		UploadPath:  "/upload-image/",
		SegmentPath: "/segment-image/",
		RecolorPath: "/recolor-image/",
		ImagesPath:  "/uploaded_images/",
	}
}

// Client is an HTTP backend implementing ImageStore, Segmenter and Recolorer.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Named("service"),
	}
}

func (c *Client) endpoint(p string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(p, "/")
}

// Upload sends the image as multipart field "file" and returns the stored name.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.UploadPath), &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, "upload", &resp); err != nil {
		return "", err
	}
	if resp.ImageName == "" {
		return "", fmt.Errorf("upload: %w: missing image_name", ErrBadResponse)
	}
	c.log.Info("uploaded image", zap.String("image", resp.ImageName))
	return resp.ImageName, nil
}

// Fetch downloads the current pixels of imageID. The revision becomes a query
// parameter so caches never serve a pre-recolor copy.
func (c *Client) Fetch(ctx context.Context, imageID string, revision int) (image.Image, error) {
	u := c.endpoint(c.cfg.ImagesPath) + url.PathEscape(imageID) + "?v=" + strconv.Itoa(revision)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	raw, err := c.send(req, "fetch")
	if err != nil {
		return nil, err
	}
	img, _, err := imgpkg.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", imageID, err)
	}
	return img, nil
}

// Segment submits one round of prompts and decodes the candidate masks.
func (c *Client) Segment(ctx context.Context, r prompt.Request) ([]*mask.Grid, error) {
	payload, err := json.Marshal(segmentRequest{ImageName: r.ImageID, Prompts: r.Points})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.SegmentPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	var resp segmentResponse
	if err := c.do(req, "segment", &resp); err != nil {
		return nil, err
	}
	grids, err := resp.grids()
	if err != nil {
		return nil, fmt.Errorf("segment: %w: %w", ErrBadResponse, err)
	}
	c.log.Debug("segmented",
		zap.String("image", r.ImageID),
		zap.String("round", r.RoundID),
		zap.Int("points", len(r.Points)),
		zap.Int("masks", len(grids)),
		zap.Duration("elapsed", time.Since(start)))
	return grids, nil
}

// Recolor asks the backend to recolor the masked region in place.
func (c *Client) Recolor(ctx context.Context, r RecolorRequest) error {
	if r.Mask == nil {
		return fmt.Errorf("recolor: %w", mask.ErrEmptyMask)
	}
	payload, err := json.Marshal(recolorRequest{
		ImageName:      r.ImageID,
		Mask:           r.Mask.Rows(),
		TargetHexColor: colorutil.Hex(r.Color),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.RecolorPath), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp recolorResponse
	if err := c.do(req, "recolor", &resp); err != nil {
		return err
	}
	c.log.Info("recolored", zap.String("image", r.ImageID), zap.String("color", resp.NewColorApplied))
	return nil
}

// do sends req and decodes a JSON body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	raw, err := c.send(req, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrBadResponse, err)
	}
	return nil
}

func (c *Client) send(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &TransportError{Op: op, Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Detail: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		te := &TransportError{Op: op, StatusCode: resp.StatusCode, Detail: detail(raw)}
		c.log.Warn("request failed", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("detail", te.Detail))
		return nil, te
	}
	return raw, nil
}
