package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
)

type tokenEndpointResponse struct {
	AccessToken      string `json:"access_token"`
	IDToken          string `json:"id_token"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode redeems a hosted UI authorization code at the pool's OAuth2
// token endpoint. The app client is public, so no secret is sent.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Tokens, error) {
	if c.tokenURL == "" {
		return nil, apierror.Upstream(apierror.IdentityProvider, errors.New("COGNITO_DOMAIN is not configured"))
	}
	if isBlank(code) || isBlank(redirectURI) {
		return nil, errors.New("code and redirect_uri are required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.clientID)
	form.Set("code", strings.TrimSpace(code))
	form.Set("redirect_uri", strings.TrimSpace(redirectURI))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apierror.Upstream(apierror.IdentityProvider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierror.Upstream(apierror.IdentityProvider, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out tokenEndpointResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK {
		msg := out.ErrorDescription
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = "Failed to exchange code"
		}
		return nil, apierror.Rejected(apierror.IdentityProvider, msg,
			fmt.Errorf("token exchange failed: status=%d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, apierror.Upstream(apierror.IdentityProvider, fmt.Errorf("decode token response: %w", decodeErr))
	}
	if out.AccessToken == "" || out.IDToken == "" {
		return nil, apierror.Rejected(apierror.IdentityProvider, "AccessToken or IdToken missing", ErrMissingTokens)
	}
	return &Tokens{AccessToken: out.AccessToken, IDToken: out.IDToken, RefreshToken: out.RefreshToken}, nil
}
