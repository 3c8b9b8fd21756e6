// Package identity talks to the Cognito user pool: sign-up, confirmation,
// password and refresh-token login, and the hosted UI code exchange.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingTokens      = errors.New("identity provider returned no tokens")
)

// API is the subset of the Cognito client used here.
type API interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// Tokens is what a successful login hands back to the client.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type Client struct {
	api        API
	userPoolID string
	clientID   string
	tokenURL   string
	httpClient *http.Client
}

func NewClient(api API, cfg *Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		api:        api,
		userPoolID: cfg.UserPoolID,
		clientID:   cfg.ClientID,
		tokenURL:   cfg.TokenEndpoint(),
		httpClient: httpClient,
	}
}

func NewClientFromConfig(awsCfg aws.Config, cfg *Config) *Client {
	return NewClient(cip.NewFromConfig(awsCfg), cfg)
}

// SignUp registers email in the pool and returns the subject the pool
// assigned, which is the "sub" claim of the user's future tokens.
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	_, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return "", providerError(err)
	}

	user, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return "", providerError(err)
	}

	subject := aws.ToString(user.Username)
	for _, attr := range user.UserAttributes {
		if aws.ToString(attr.Name) == "sub" && aws.ToString(attr.Value) != "" {
			subject = aws.ToString(attr.Value)
			break
		}
	}
	if subject == "" {
		return "", apierror.Upstream(apierror.IdentityProvider, errors.New("user has no subject"))
	}
	log.Infof("[Identity] signed up subject %s", subject)
	return subject, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return providerError(err)
	}
	return nil
}

func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*Tokens, error) {
	return c.initiateAuth(ctx, types.AuthFlowTypeUserPasswordAuth, map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	})
}

// Refresh trades a refresh token for new access and ID tokens. The refresh
// token itself is not rotated.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	return c.initiateAuth(ctx, types.AuthFlowTypeRefreshTokenAuth, map[string]string{
		"REFRESH_TOKEN": refreshToken,
	})
}

func (c *Client) initiateAuth(ctx context.Context, flow types.AuthFlowType, params map[string]string) (*Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       flow,
		AuthParameters: params,
		ClientId:       aws.String(c.clientID),
	})
	if err != nil {
		return nil, providerError(err)
	}
	if out.AuthenticationResult == nil {
		// A challenge (MFA, new password) is not something this API can complete.
		return nil, apierror.Rejected(apierror.IdentityProvider,
			fmt.Sprintf("additional challenge required: %s", out.ChallengeName), ErrMissingTokens)
	}
	res := out.AuthenticationResult
	return &Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}, nil
}

// providerError maps Cognito failures: wrong password or expired refresh
// token is ErrInvalidCredentials, other client faults are rejections carrying
// Cognito's message, the rest are upstream failures.
func providerError(err error) error {
	var notAuthorized *types.NotAuthorizedException
	if errors.As(err, &notAuthorized) {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, notAuthorized.ErrorMessage())
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		return apierror.Rejected(apierror.IdentityProvider,
			fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()), err)
	}
	return apierror.Upstream(apierror.IdentityProvider, err)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
