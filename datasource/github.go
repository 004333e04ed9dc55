package datasource

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// GitHub confirms that the claimed username exists on GitHub.
type GitHub struct {
	src httpSource
}

// NewGitHub returns a connector against baseURL (https://api.github.com in
// production). token is optional and only raises the rate limit.
func NewGitHub(baseURL, token string, timeout time.Duration, attempts int) *GitHub {
	src := newHTTPSource("github", strings.TrimRight(baseURL, "/"), timeout, attempts)
	src.header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		src.header.Set("Authorization", "Bearer "+token)
	}
	return &GitHub{src: src}
}

func (g *GitHub) Name() string { return "github" }

// Verify expects metadata["username"].
func (g *GitHub) Verify(ctx context.Context, metadata map[string]interface{}) (bool, error) {
	username := metadataString(metadata, "username")
	if username == "" {
		return false, nil
	}
	return safely(g.Name(), func() (bool, error) {
		return g.src.exists(ctx, "/users/"+url.PathEscape(username))
	})
}

func (g *GitHub) GetData(ctx context.Context, userID string) (Profile, error) {
	return g.src.profile(ctx, "/users/"+url.PathEscape(strings.TrimSpace(userID)))
}
