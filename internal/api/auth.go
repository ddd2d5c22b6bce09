package api

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/s/lmsPortal/internal/models"
)

// ObtainToken exchanges credentials for an access/refresh pair.
func (c *Client) ObtainToken(ctx context.Context, creds models.Credentials) (models.Tokens, error) {
	var tokens models.Tokens
	if err := c.doJSON(ctx, http.MethodPost, "/token/", creds, &tokens); err != nil {
		return models.Tokens{}, err
	}
	if tokens.Access == "" {
		return models.Tokens{}, malformed(errMissingAccess)
	}
	return tokens, nil
}

// Profile loads the user the access token belongs to. The backend
// answers with a list; the first entry is the caller.
func (c *Client) Profile(ctx context.Context, tokens models.Tokens) (models.User, error) {
	body, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/users/",
		token:  &oauth2.Token{AccessToken: tokens.Access, TokenType: "Bearer"},
	})
	if err != nil {
		return models.User{}, err
	}

	users, err := decodeList[models.User](body)
	if err != nil {
		return models.User{}, err
	}
	if len(users) == 0 {
		return models.User{}, malformed(errNoProfile)
	}
	return users[0], nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (models.User, error) {
	var user models.User
	err := c.doJSON(ctx, http.MethodPost, "/users/", reg, &user)
	return user, err
}
