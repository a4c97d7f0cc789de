package actionstep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/settleline/conveyor/internal/adapters/platform"
)

// ClientCredentialsTokenSource exchanges client credentials for a bearer
// token. The platform client caches the header and calls back here only when
// the cached token is absent, expired or rejected.
func ClientCredentialsTokenSource(httpClient *http.Client, tokenURL, clientID, clientSecret string) platform.TokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return func(ctx context.Context) (string, error) {
		form := url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {clientID},
			"client_secret": {clientSecret},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return "", fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("token request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
		}
		var body struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode token response: %w", err)
		}
		if body.AccessToken == "" {
			return "", fmt.Errorf("token endpoint returned no access token")
		}
		return "Bearer " + body.AccessToken, nil
	}
}
