package datasource

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// userLookup is the slice of the discordgo session the connector needs.
type userLookup interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Discord confirms a Discord user id through the REST API using a bot token.
type Discord struct {
	users userLookup
}

// NewDiscord builds the connector. An empty token yields a connector that
// reports ErrIntegrationUnavailable.
func NewDiscord(token string) (*Discord, error) {
	if strings.TrimSpace(token) == "" {
		return &Discord{}, nil
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "creating discord session")
	}
	return &Discord{users: session}, nil
}

func (d *Discord) Name() string { return "discord" }

// Verify expects metadata["userId"]; a username in metadata["username"], when
// given, must match the account.
func (d *Discord) Verify(ctx context.Context, metadata map[string]interface{}) (bool, error) {
	if d.users == nil {
		return false, errors.Wrap(ErrIntegrationUnavailable, "discord verification requires a bot token")
	}
	userID := metadataString(metadata, "userId")
	if userID == "" {
		return false, nil
	}
	return safely(d.Name(), func() (bool, error) {
		user, err := d.lookup(ctx, userID)
		if errors.Is(err, ErrProfileNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if username := metadataString(metadata, "username"); username != "" {
			return strings.EqualFold(user.Username, username), nil
		}
		return true, nil
	})
}

func (d *Discord) GetData(ctx context.Context, userID string) (Profile, error) {
	if d.users == nil {
		return nil, errors.Wrap(ErrIntegrationUnavailable, "discord data fetching requires a bot token")
	}
	user, err := d.lookup(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	return Profile{
		"id":          user.ID,
		"username":    user.Username,
		"global_name": user.GlobalName,
		"bot":         user.Bot,
		"avatar":      user.AvatarURL(""),
	}, nil
}

func (d *Discord) lookup(ctx context.Context, userID string) (*discordgo.User, error) {
	user, err := d.users.User(userID, discordgo.WithContext(ctx))
	if err == nil {
		return user, nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest:
			return nil, errors.Wrapf(ErrProfileNotFound, "discord: %s", userID)
		}
	}
	return nil, errors.Wrapf(ErrExternalVerificationFailed, "discord: %v", err)
}
