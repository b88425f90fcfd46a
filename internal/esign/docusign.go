package esign

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an authenticated provider session bound to one account
type Session struct {
	AccessToken string
	AccountID   string
	BaseURI     string
}

// Provider is the signing provider contract the status bridge needs
type Provider interface {
	// Authenticate acquires a token and resolves the account. Failures wrap models.ErrProviderAuth.
	Authenticate(ctx context.Context) (*Session, error)
	EnvelopeStatus(ctx context.Context, s *Session, envelopeID string) (string, error)
	DownloadCombined(ctx context.Context, s *Session, envelopeID string) ([]byte, error)
}

// DocuSignOptions configures the JWT grant
type DocuSignOptions struct {
	IntegrationKey string
	UserID         string
	OAuthHost      string // account-d.docusign.com for demo, account.docusign.com for production
	PrivateKeyPEM  string
	PrivateKeyPath string
}

// DocuSignClient implements Provider with the JWT bearer grant
type DocuSignClient struct {
	opts       DocuSignOptions
	key        *rsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time
}

func NewDocuSignClient(opts DocuSignOptions, httpClient *http.Client) (*DocuSignClient, error) {
	pemData := opts.PrivateKeyPEM
	if pemData == "" && opts.PrivateKeyPath != "" {
		b, err := os.ReadFile(opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read docusign private key: %w", err)
		}
		pemData = string(b)
	}
	// keys pasted into env vars often carry literal \n
	pemData = strings.ReplaceAll(pemData, `\n`, "\n")

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("invalid docusign private key: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.OAuthHost == "" {
		opts.OAuthHost = "account-d.docusign.com"
	}
	return &DocuSignClient{opts: opts, key: key, httpClient: httpClient, now: time.Now}, nil
}

// Assertion builds the RS256-signed JWT grant assertion
func (c *DocuSignClient) Assertion() (string, error) {
	iat := c.now().Unix()
	claims := jwt.MapClaims{
		"iss":   c.opts.IntegrationKey,
		"sub":   c.opts.UserID,
		"iat":   iat,
		"exp":   iat + 3600,
		"aud":   c.opts.OAuthHost,
		"scope": "signature impersonation",
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
}

func (c *DocuSignClient) oauthURL(path string) string {
	host := c.opts.OAuthHost
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/") + path
}

func (c *DocuSignClient) Authenticate(ctx context.Context) (*Session, error) {
	assertion, err := c.Assertion()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderAuth, err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL("/oauth/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(req, &token); err != nil {
		return nil, fmt.Errorf("%w: token request: %v", models.ErrProviderAuth, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", models.ErrProviderAuth)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.oauthURL("/oauth/userinfo"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var info struct {
		Accounts []struct {
			AccountID string `json:"account_id"`
			IsDefault bool   `json:"is_default"`
			BaseURI   string `json:"base_uri"`
		} `json:"accounts"`
	}
	if err := c.doJSON(req, &info); err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", models.ErrProviderAuth, err)
	}
	if len(info.Accounts) == 0 {
		return nil, fmt.Errorf("%w: no accounts for user", models.ErrProviderAuth)
	}

	acct := info.Accounts[0]
	for _, a := range info.Accounts {
		if a.IsDefault {
			acct = a
			break
		}
	}
	return &Session{AccessToken: token.AccessToken, AccountID: acct.AccountID, BaseURI: acct.BaseURI}, nil
}

func (c *DocuSignClient) envelopeURL(s *Session, envelopeID, suffix string) string {
	return fmt.Sprintf("%s/restapi/v2.1/accounts/%s/envelopes/%s%s",
		strings.TrimRight(s.BaseURI, "/"), url.PathEscape(s.AccountID), url.PathEscape(envelopeID), suffix)
}

func (c *DocuSignClient) EnvelopeStatus(ctx context.Context, s *Session, envelopeID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.envelopeURL(s, envelopeID, ""), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	var env struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(req, &env); err != nil {
		return "", fmt.Errorf("failed to fetch envelope %s: %w", envelopeID, err)
	}
	if env.Status == "" {
		return "", fmt.Errorf("envelope %s response has no status", envelopeID)
	}
	return env.Status, nil
}

func (c *DocuSignClient) DownloadCombined(ctx context.Context, s *Session, envelopeID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.envelopeURL(s, envelopeID, "/documents/combined"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *DocuSignClient) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Unconfigured stands in for the provider when no DocuSign credentials are set.
// Every call fails with models.ErrProviderAuth.
type Unconfigured struct{}

func (Unconfigured) Authenticate(ctx context.Context) (*Session, error) {
	return nil, fmt.Errorf("%w: docusign is not configured", models.ErrProviderAuth)
}

func (Unconfigured) EnvelopeStatus(ctx context.Context, s *Session, envelopeID string) (string, error) {
	return "", fmt.Errorf("%w: docusign is not configured", models.ErrProviderAuth)
}

func (Unconfigured) DownloadCombined(ctx context.Context, s *Session, envelopeID string) ([]byte, error) {
	return nil, fmt.Errorf("%w: docusign is not configured", models.ErrProviderAuth)
}
