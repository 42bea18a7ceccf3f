// Package auth signs a developer in with the device code flow so notebook
// function tests can call APIs that need a bearer token. Tokens are kept in
// a file cache between runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/ui"
)

const (
	DefaultClientID  = "3e747674-29a3-46ec-be9e-faa584989c87"
	DefaultTenantID  = "30520885-0a26-49e9-a66d-b53f7e1f958b"
	DefaultCachePath = "test/.msal_cache.json"

	authorityBase = "https://login.microsoftonline.com/"
)

var DefaultScopes = []string{"Files.ReadWrite"}

var (
	ErrDeviceFlow   = errors.New("device code flow failed")
	ErrAcquireToken = errors.New("failed to acquire token")
)

type Config struct {
	ClientID  string
	TenantID  string
	Scopes    []string
	CachePath string
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.TenantID == "" {
		c.TenantID = DefaultTenantID
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	if c.CachePath == "" {
		c.CachePath = DefaultCachePath
	}
	return c
}

// Authority is the sign-in endpoint for the configured tenant.
func (c Config) Authority() string {
	return authorityBase + c.withDefaults().TenantID
}

// DeviceCodePrompt is what the user needs to finish signing in elsewhere.
type DeviceCodePrompt struct {
	UserCode        string
	VerificationURL string
	Message         string
}

// DeviceFlow is a started device code sign-in.
type DeviceFlow interface {
	Prompt() DeviceCodePrompt
	// Wait blocks until the user completes or abandons the sign-in.
	Wait(ctx context.Context) (public.AuthResult, error)
}

// Client is the subset of the identity client used here.
type Client interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, account public.Account) (public.AuthResult, error)
	AcquireTokenByDeviceCode(ctx context.Context, scopes []string) (DeviceFlow, error)
}

type msalClient struct {
	client public.Client
}

// NewClient creates a public client application for cfg whose token cache
// lives in cfg.CachePath.
func NewClient(cfg Config) (Client, error) {
	cfg = cfg.withDefaults()
	client, err := public.New(cfg.ClientID,
		public.WithAuthority(cfg.Authority()),
		public.WithCache(&FileCache{Path: cfg.CachePath}),
	)
	if err != nil {
		return nil, fmt.Errorf("create public client: %w", err)
	}
	return msalClient{client: client}, nil
}

func (m msalClient) Accounts(ctx context.Context) ([]public.Account, error) {
	return m.client.Accounts(ctx)
}

func (m msalClient) AcquireTokenSilent(ctx context.Context, scopes []string, account public.Account) (public.AuthResult, error) {
	return m.client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(account))
}

func (m msalClient) AcquireTokenByDeviceCode(ctx context.Context, scopes []string) (DeviceFlow, error) {
	dc, err := m.client.AcquireTokenByDeviceCode(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return msalDeviceFlow{dc: dc}, nil
}

type msalDeviceFlow struct {
	dc public.DeviceCode
}

func (f msalDeviceFlow) Prompt() DeviceCodePrompt {
	return DeviceCodePrompt{
		UserCode:        f.dc.Result.UserCode,
		VerificationURL: f.dc.Result.VerificationURL,
		Message:         f.dc.Result.Message,
	}
}

func (f msalDeviceFlow) Wait(ctx context.Context) (public.AuthResult, error) {
	return f.dc.AuthenticationResult(ctx)
}

type Authenticator struct {
	Client Client
	Scopes []string
	// Out receives the sign-in prompt. Defaults to stdout.
	Out io.Writer
	Log *zap.Logger
}

// New returns an Authenticator backed by the identity provider.
func New(cfg Config, log *zap.Logger) (*Authenticator, error) {
	cfg = cfg.withDefaults()
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Authenticator{Client: client, Scopes: cfg.Scopes, Log: log}, nil
}

// Login returns a token for the first cached account when one can be
// obtained silently, and otherwise runs the device code flow.
func (a *Authenticator) Login(ctx context.Context) (public.AuthResult, error) {
	log := logging.OrNop(a.Log)
	scopes := a.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	accounts, err := a.Client.Accounts(ctx)
	if err != nil {
		log.Warn("cannot read cached accounts", zap.Error(err))
	}
	if len(accounts) > 0 {
		result, err := a.Client.AcquireTokenSilent(ctx, scopes, accounts[0])
		if err == nil && result.AccessToken != "" {
			log.Debug("using cached token", zap.String("account", accounts[0].PreferredUsername))
			return result, nil
		}
		log.Debug("silent token acquisition failed", zap.Error(err))
	}

	flow, err := a.Client.AcquireTokenByDeviceCode(ctx, scopes)
	if err != nil {
		return public.AuthResult{}, fmt.Errorf("%w: %w", ErrDeviceFlow, err)
	}
	prompt := flow.Prompt()
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	ui.Infof(out, "To sign in, use a web browser to open %s and enter the code: %s", prompt.VerificationURL, prompt.UserCode)

	result, err := flow.Wait(ctx)
	if err != nil {
		return public.AuthResult{}, fmt.Errorf("%w: %w", ErrAcquireToken, err)
	}
	if result.AccessToken == "" {
		return public.AuthResult{}, fmt.Errorf("%w: empty access token", ErrAcquireToken)
	}
	return result, nil
}

// Token returns an access token, signing in if needed.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	result, err := a.Login(ctx)
	if err != nil {
		return "", err
	}
	return result.AccessToken, nil
}
