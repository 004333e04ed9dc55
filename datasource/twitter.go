package datasource

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Twitter looks users up through the v2 API. Without a bearer token there
// is no way to query it and every call reports ErrIntegrationUnavailable.
type Twitter struct {
	src     httpSource
	enabled bool
}

func NewTwitter(baseURL, bearerToken string, timeout time.Duration, attempts int) *Twitter {
	src := newHTTPSource("twitter", strings.TrimRight(baseURL, "/"), timeout, attempts)
	if bearerToken != "" {
		src.header.Set("Authorization", "Bearer "+bearerToken)
	}
	return &Twitter{src: src, enabled: bearerToken != ""}
}

func (t *Twitter) Name() string { return "twitter" }

// Verify expects metadata["username"], with or without the leading @.
func (t *Twitter) Verify(ctx context.Context, metadata map[string]interface{}) (bool, error) {
	if !t.enabled {
		return false, errors.Wrap(ErrIntegrationUnavailable, "twitter verification requires a bearer token")
	}
	username := strings.TrimPrefix(metadataString(metadata, "username"), "@")
	if username == "" {
		return false, nil
	}
	return safely(t.Name(), func() (bool, error) {
		profile, err := t.src.profile(ctx, "/2/users/by/username/"+url.PathEscape(username))
		if errors.Is(err, ErrProfileNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		// The v2 API answers 200 with an "errors" list for unknown users.
		_, found := profile["data"]
		return found, nil
	})
}

func (t *Twitter) GetData(ctx context.Context, userID string) (Profile, error) {
	if !t.enabled {
		return nil, errors.Wrap(ErrIntegrationUnavailable, "twitter data fetching requires a bearer token")
	}
	profile, err := t.src.profile(ctx, "/2/users/by/username/"+url.PathEscape(strings.TrimPrefix(strings.TrimSpace(userID), "@")))
	if err != nil {
		return nil, err
	}
	if _, found := profile["data"]; !found {
		return nil, errors.Wrapf(ErrProfileNotFound, "twitter: %s", userID)
	}
	return profile, nil
}
