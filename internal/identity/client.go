// Package identity fetches verification media from the identity-verification provider.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fleetrent-backend/internal/models"
)

const (
	authClientHeader = "X-AUTH-CLIENT"
	signatureHeader  = "X-HMAC-SIGNATURE"
)

// Client signs every request with HMAC-SHA256 of the resource id it addresses
type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secret:     secret,
		httpClient: httpClient,
	}
}

// Signature is the hex HMAC-SHA256 of payload under secret
func Signature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) get(ctx context.Context, path, signed string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(authClientHeader, c.apiKey)
	req.Header.Set(signatureHeader, Signature(signed, c.secret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("identity provider returned status %d for %s", resp.StatusCode, path)
	}
	return resp, nil
}

// ListMedia returns the images recorded for a verification session
func (c *Client) ListMedia(ctx context.Context, sessionID string) ([]models.VerificationMedia, error) {
	resp, err := c.get(ctx, "/v1/sessions/"+url.PathEscape(sessionID)+"/media", sessionID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Status string                     `json:"status"`
		Images []models.VerificationMedia `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("malformed media list: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("media list status %q", body.Status)
	}
	return body.Images, nil
}

// DownloadMedia fetches one media file and its content type
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	resp, err := c.get(ctx, "/v1/media/"+url.PathEscape(mediaID), mediaID)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
