package esign

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return key, string(block)
}

func TestAssertionClaims(t *testing.T) {
	key, pemData := testKey(t)
	c, err := NewDocuSignClient(DocuSignOptions{
		IntegrationKey: "ik-1",
		UserID:         "user-1",
		OAuthHost:      "account-d.docusign.com",
		PrivateKeyPEM:  pemData,
	}, nil)
	require.NoError(t, err)
	fixed := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return fixed }

	signed, err := c.Assertion()
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	assert.Equal(t, "RS256", tok.Method.Alg())
	assert.Equal(t, "ik-1", claims["iss"])
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "account-d.docusign.com", claims["aud"])
	assert.Equal(t, "signature impersonation", claims["scope"])
	assert.Equal(t, float64(fixed.Unix()), claims["iat"])
	assert.Equal(t, float64(fixed.Unix()+3600), claims["exp"])
}

func TestAuthenticateAndFetch(t *testing.T) {
	_, pemData := testKey(t)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	})
	mux.HandleFunc("/oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"accounts": []map[string]interface{}{
				{"account_id": "other", "is_default": false, "base_uri": "http://wrong"},
				{"account_id": "acct-1", "is_default": true, "base_uri": srv.URL},
			},
		})
	})
	mux.HandleFunc("/restapi/v2.1/accounts/acct-1/envelopes/env-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
	})
	mux.HandleFunc("/restapi/v2.1/accounts/acct-1/envelopes/env-1/documents/combined", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewDocuSignClient(DocuSignOptions{OAuthHost: srv.URL, PrivateKeyPEM: pemData}, srv.Client())
	require.NoError(t, err)

	ctx := context.Background()
	s, err := c.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", s.AccountID)

	status, err := c.EnvelopeStatus(ctx, s, "env-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status)

	pdf, err := c.DownloadCombined(ctx, s, "env-1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
}

func TestAuthenticate_TokenRejected(t *testing.T) {
	_, pemData := testKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"consent_required"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewDocuSignClient(DocuSignOptions{OAuthHost: srv.URL, PrivateKeyPEM: pemData}, srv.Client())
	require.NoError(t, err)

	_, err = c.Authenticate(context.Background())
	assert.ErrorIs(t, err, models.ErrProviderAuth)
}

func TestUnconfiguredProviderFailsAuth(t *testing.T) {
	var p Provider = Unconfigured{}
	_, err := p.Authenticate(context.Background())
	assert.ErrorIs(t, err, models.ErrProviderAuth)
	_, err = p.DownloadCombined(context.Background(), nil, "env-1")
	assert.ErrorIs(t, err, models.ErrProviderAuth)
}
