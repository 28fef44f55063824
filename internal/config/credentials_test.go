package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredentialsPlainAndOAuth2(t *testing.T) {
	creds, err := parseCredentials(strings.NewReader(`{
		"archive.example.com": {"username": "bob", "password": "s3cr3t"},
		"https://api.example.com/": {
			"auth_type": "oauth2",
			"grant_type": "client_credentials",
			"client_id": "id",
			"client_secret": "secret",
			"token_url": "https://auth.example.com/token"
		}
	}`))
	require.Nil(t, err)

	entry, ok := creds.Lookup("archive.example.com")
	require.True(t, ok)
	assert.Equal(t, "bob", entry.Username)

	entry, ok = creds.Lookup("https://api.example.com/v1/things")
	require.True(t, ok)
	assert.Equal(t, "oauth2", entry.AuthType)
	assert.Equal(t, "client_credentials", entry.EffectiveGrantType())
}

func TestParseCredentialsAcceptsMisspelledGrandType(t *testing.T) {
	creds, err := parseCredentials(strings.NewReader(`{
		"host.example.com": {"auth_type": "oauth2", "grand_type": "password", "username": "u", "password": "p"}
	}`))
	require.Nil(t, err)

	entry, ok := creds.Lookup("host.example.com")
	require.True(t, ok)
	assert.Equal(t, "password", entry.EffectiveGrantType())
}

func TestCredentialsLookupPrefersLongestPrefix(t *testing.T) {
	creds, err := parseCredentials(strings.NewReader(`{
		"s3://": {"auth_type": "S3", "access_key": "generic"},
		"s3://my-bucket": {"auth_type": "S3", "access_key": "specific"}
	}`))
	require.Nil(t, err)

	entry, ok := creds.Lookup("s3://my-bucket/products/foo")
	require.True(t, ok)
	assert.Equal(t, "specific", entry.AccessKey)
}

func TestCredentialsLookupMiss(t *testing.T) {
	creds, err := parseCredentials(strings.NewReader(`{"host.example.com": {"username": "u", "password": "p"}}`))
	require.Nil(t, err)

	_, ok := creds.Lookup("other.example.com")
	assert.False(t, ok)
}
