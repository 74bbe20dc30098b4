package sheetsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

func TestCredentialsKind(t *testing.T) {
	tests := []struct {
		name string
		data string
		want credentialsType
	}{
		{"service account", `{"type": "service_account", "client_email": "bot@example.iam.gserviceaccount.com"}`, kindServiceAccount},
		{"installed app", `{"installed": {"client_id": "abc"}}`, kindOAuthClient},
		{"web app", `{"web": {"client_id": "abc"}}`, kindOAuthClient},
		{"other json", `{"type": "authorized_user"}`, kindUnknown},
		{"not json", `client_id=abc`, kindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, credentialsKind([]byte(tt.data)))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	token, err := loadToken("test")
	require.NoError(t, err)
	assert.Nil(t, token)

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Date(2025, 3, 4, 19, 0, 0, 0, time.UTC),
	}
	require.NoError(t, saveToken("test", saved))

	loaded, err := loadToken("test")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, saved.Expiry.Equal(loaded.Expiry))

	other, err := loadToken("prod")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestFindSheet(t *testing.T) {
	sheetList := []*sheets.Sheet{
		{Properties: &sheets.SheetProperties{Title: "Sheet1", SheetId: 0}},
		{Properties: &sheets.SheetProperties{Title: "2025-03-04 Wing 1 (#12)", SheetId: 7}},
	}

	found := findSheet(sheetList, "2025-03-04 Wing 1 (#12)")
	require.NotNil(t, found)
	assert.Equal(t, int64(7), found.Properties.SheetId)

	assert.Nil(t, findSheet(sheetList, "missing"))
}

func TestTabRange(t *testing.T) {
	assert.Equal(t, "'Wing 1'", tabRange("Wing 1"))
	assert.Equal(t, "'Sabetha''s wing'", tabRange("Sabetha's wing"))
}
