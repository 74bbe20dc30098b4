package discordclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/training-signups/pkg/core/model"
)

type fakeSession struct {
	members  map[string]*discordgo.Member
	err      error
	messages map[string][]string
}

func (f *fakeSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	member, ok := f.members[guildID+"/"+userID]
	if !ok {
		return nil, &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	}
	return member, nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.messages == nil {
		f.messages = map[string][]string{}
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func newTestClient(s *fakeSession, channelID string) *Client {
	return &Client{session: s, guildID: "guild", channelID: channelID, logger: zap.NewNop()}
}

func TestExternalGroupIDs(t *testing.T) {
	s := &fakeSession{members: map[string]*discordgo.Member{
		"guild/111": {Roles: []string{"900", "901"}},
	}}
	c := newTestClient(s, "")

	groups, err := c.ExternalGroupIDs(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, []string{"900", "901"}, groups)

	groups, err = c.ExternalGroupIDs(context.Background(), "222")
	require.NoError(t, err)
	assert.Empty(t, groups)

	s.err = errors.New("rate limited")
	_, err = c.ExternalGroupIDs(context.Background(), "111")
	assert.Error(t, err)
}

func TestNotify(t *testing.T) {
	s := &fakeSession{}
	event := model.Event{Kind: model.EventStateChanged, TrainingID: 3, Title: "Wing 2", To: model.StatePublished}

	newTestClient(s, "chan").Notify(context.Background(), event)
	assert.Equal(t, []string{"**Wing 2** (#3) is open for signups"}, s.messages["chan"])

	// Without a channel nothing is sent
	newTestClient(s, "").Notify(context.Background(), event)
	assert.Len(t, s.messages, 1)

	// Send failures are swallowed
	s.err = errors.New("missing access")
	newTestClient(s, "chan").Notify(context.Background(), event)
	assert.Len(t, s.messages["chan"], 1)
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event model.Event
		want  string
	}{
		{
			name:  "closed",
			event: model.Event{Kind: model.EventStateChanged, TrainingID: 1, Title: "Wing 1", To: model.StateClosed},
			want:  "**Wing 1** (#1) is closed for signups",
		},
		{
			name:  "finished",
			event: model.Event{Kind: model.EventStateChanged, TrainingID: 1, Title: "Wing 1", To: model.StateFinished},
			want:  "**Wing 1** (#1) has finished",
		},
		{
			name: "assignment",
			event: model.Event{
				Kind:       model.EventAssignmentCommitted,
				TrainingID: 4,
				Title:      "Wing 3",
				Assignment: &model.Assignment{
					Placements: []model.Placement{{SignupID: 1, RoleID: 1}, {SignupID: 2, RoleID: 3}},
					Unfilled:   []model.SlotDemand{{RoleID: 2, Count: 2}},
					Benched:    []int64{5},
				},
			},
			want: "**Wing 3** (#4) assignment committed: 2 placed, 1 benched, 2 open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(tt.event))
		})
	}
}
