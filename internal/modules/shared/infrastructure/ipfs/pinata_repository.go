package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"docchain/internal/config"
	"docchain/internal/modules/document/domain"
)

const (
	// sniffLen mimetype が判定に使う先頭バイト数
	sniffLen = 3072

	defaultMaxDocumentBytes = 50 << 20
)

// PinataRepository Pinata APIとIPFSゲートウェイのリポジトリ実装
type PinataRepository struct {
	apiKey           string
	apiSecret        string
	httpClient       *http.Client
	apiEndpoint      string // テスト用にエンドポイントを差し替え可能に
	gatewayURL       string
	maxDocumentBytes int64
}

// NewPinataRepository 新しいPinataRepositoryを作成
func NewPinataRepository(cfg *config.PinataConfig) *PinataRepository {
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}
	return &PinataRepository{
		apiKey:           cfg.APIKey,
		apiSecret:        cfg.APISecret,
		httpClient:       &http.Client{Timeout: 60 * time.Second},
		apiEndpoint:      cfg.Endpoint,
		gatewayURL:       strings.TrimRight(cfg.GatewayURL, "/"),
		maxDocumentBytes: maxBytes,
	}
}

// SetHTTPClient テスト用にHTTPクライアントを設定（テストコードからのみ使用）
func (r *PinataRepository) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}

// Pin ファイルをpinFileToIPFSでピン留めしてCIDを返す
func (r *PinataRepository) Pin(ctx context.Context, name string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := writer.WriteField("pinataMetadata", string(metadata)); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := writer.WriteField("pinataOptions", `{"cidVersion":0}`); err != nil {
		return "", fmt.Errorf("failed to write options: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("pinata_api_key", r.apiKey)
	req.Header.Set("pinata_secret_api_key", r.apiSecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		IpfsHash  string `json:"IpfsHash"`
		PinSize   int64  `json:"PinSize"`
		Timestamp string `json:"Timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.IpfsHash == "" {
		return "", fmt.Errorf("API response missing IpfsHash")
	}

	return response.IpfsHash, nil
}

// Fetch ゲートウェイからCIDの内容を取得
//
// 本体は読み込まずに返す。先頭だけを読んで種類を判定する。
func (r *PinataRepository) Fetch(ctx context.Context, hash string) (*domain.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.gatewayURL+"/"+hash, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, hash)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > r.maxDocumentBytes {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrDocumentTooLarge, resp.ContentLength)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	head = head[:n]
	if int64(n) > r.maxDocumentBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrDocumentTooLarge, r.maxDocumentBytes)
	}

	// ゲートウェイのContent-Typeは当てにならないので中身から判定
	mtype := mimetype.Detect(head)
	handedOff = true
	return &domain.Content{
		Body: &limitedBody{
			r:         io.MultiReader(bytes.NewReader(head), resp.Body),
			closer:    resp.Body,
			remaining: r.maxDocumentBytes,
		},
		Size:        resp.ContentLength,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
	}, nil
}

// limitedBody remaining を超えて読もうとすると ErrDocumentTooLarge を返す
type limitedBody struct {
	r         io.Reader
	closer    io.Closer
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, domain.ErrDocumentTooLarge
	}
	// 上限ちょうどのドキュメントと超過を区別するため1バイト余分に読む
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	if int64(n) <= b.remaining {
		b.remaining -= int64(n)
		return n, err
	}
	n = int(b.remaining)
	b.remaining = -1
	return n, domain.ErrDocumentTooLarge
}

func (b *limitedBody) Close() error {
	return b.closer.Close()
}
