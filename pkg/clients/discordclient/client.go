package discordclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

// session is the part of *discordgo.Session the client uses
type session interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client looks up guild role memberships and posts training events to a
// channel. Participants are Discord user ids; external groups are guild role ids.
type Client struct {
	session   session
	guildID   string
	channelID string
	logger    *zap.Logger
}

// NewClient creates a client with a bot token. Only REST calls are made, so
// no gateway connection is opened.
func NewClient(token, guildID, channelID string, logger *zap.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMembers

	return &Client{
		session:   s,
		guildID:   guildID,
		channelID: channelID,
		logger:    logger,
	}, nil
}

// ExternalGroupIDs returns the guild role ids of a member. Users that are not
// in the guild have no roles.
func (c *Client) ExternalGroupIDs(ctx context.Context, participant string) ([]string, error) {
	member, err := c.session.GuildMember(c.guildID, participant, discordgo.WithContext(ctx))
	if isNotFound(err) {
		c.logger.Debug("Participant is not a guild member", zap.String("participant", participant))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild member %s: %w", participant, err)
	}
	return member.Roles, nil
}

// Notify posts an event to the notification channel. Failures are logged, the
// change behind the event has already been committed.
func (c *Client) Notify(ctx context.Context, event model.Event) {
	if c.channelID == "" {
		return
	}

	_, err := c.session.ChannelMessageSend(c.channelID, FormatEvent(event), discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Error("Failed to post training event",
			zap.String("event_id", event.ID),
			zap.Int64("training_id", event.TrainingID),
			zap.Error(err))
		return
	}

	c.logger.Debug("Posted training event",
		zap.String("event_id", event.ID),
		zap.String("channel_id", c.channelID))
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
