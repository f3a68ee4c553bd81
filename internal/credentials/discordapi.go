// Package credentials declares the discordApi credential type and the ways a token leaves the process.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"discord-trigger/internal/core"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Name credential type name nodes ask the engine for.
const Name = "discordApi"

// TokenProperty name of the only credential property.
const TokenProperty = "token"

// DiscordAPI schema of the discordApi credential type.
var DiscordAPI = core.CredentialDescription{
	Name:             Name,
	DisplayName:      "Discord API",
	DocumentationURL: "https://discord.com/developers/docs/intro",
	Properties: []core.Property{
		{
			DisplayName: "Bot Token",
			Name:        TokenProperty,
			Type:        core.PropertyTypeString,
			TypeOptions: &core.TypeOptions{Password: true},
			Default:     "",
			Required:    true,
			Description: "The Discord bot token obtained from Discord Developer Portal",
		},
	},
	Authenticate: core.AuthenticateGeneric{
		Type: "generic",
		Properties: core.AuthenticateGenericProperties{
			Headers: map[string]string{
				"Authorization": "Bearer {{" + TokenProperty + "}}",
			},
		},
	},
}

// ErrNoToken the credential carries no token.
var ErrNoToken = errors.New("no valid token provided")

// BotCredential resolved discordApi credential.
type BotCredential struct {
	Token string
}

// Valid reports if the credential holds a non-blank token.
func (c BotCredential) Valid() bool {
	return strings.TrimSpace(c.Token) != ""
}

// String never prints the token.
func (c BotCredential) String() string {
	if !c.Valid() {
		return "BotCredential(empty)"
	}
	return "BotCredential(****)"
}

// Resolve read a BotCredential out of engine credentials. A nil map resolves to an empty token.
func Resolve(creds core.Credentials) BotCredential {
	return BotCredential{Token: creds[TokenProperty]}
}

// Apply inject the headers declared by DiscordAPI.Authenticate into req.
func Apply(req *http.Request, cred BotCredential) {
	for header, template := range DiscordAPI.Authenticate.Properties.Headers {
		req.Header.Set(header, strings.ReplaceAll(template, "{{"+TokenProperty+"}}", cred.Token))
	}
}

// BotScheme authorization scheme discord.com accepts bot tokens under.
const BotScheme = "Bot"

// HTTPClient an http.Client sending every request with the header DiscordAPI declares, "Bearer <token>".
func HTTPClient(ctx context.Context, cred BotCredential) *http.Client {
	return tokenClient(ctx, cred, "Bearer")
}

// BotClient an http.Client authenticating against the Discord API itself, "Bot <token>".
func BotClient(ctx context.Context, cred BotCredential) *http.Client {
	return tokenClient(ctx, cred, BotScheme)
}

// tokenClient oauth2 sends TokenType as the scheme when it is not one of its own.
func tokenClient(ctx context.Context, cred BotCredential, scheme string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: scheme})
	return oauth2.NewClient(ctx, ts)
}

// Test issue the credential test request, GET {apiBase}/users/@me, and return the user it identifies.
// An empty apiBase targets the public Discord API, so the request goes out under BotScheme.
func Test(ctx context.Context, cred BotCredential, apiBase string) (*discordgo.User, error) {
	if !cred.Valid() {
		return nil, ErrNoToken
	}
	if apiBase == "" {
		apiBase = discordgo.EndpointAPI
	}
	endpoint := strings.TrimSuffix(apiBase, "/") + "/users/@me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error building credential test request")
	}
	resp, err := BotClient(ctx, cred).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "credential test request failed")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "error reading credential test response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("credential test rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var user discordgo.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "error decoding credential test response")
	}
	return &user, nil
}
