package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stcorp/muninn/internal/apperrors"
)

// CredentialEntry is one record in the credentials file (spec.md §6 /
// §9's `grant_type`/`grand_type` tolerance). AuthType is empty for the
// plain {username, password} form; otherwise one of "oauth2", "S3", "Swift".
type CredentialEntry struct {
	AuthType string `json:"auth_type"`

	Username string `json:"username"`
	Password string `json:"password"`

	// oauth2
	GrantType    string         `json:"grant_type"`
	GrandType    string         `json:"grand_type"`
	ClientID     string         `json:"client_id"`
	ClientSecret string         `json:"client_secret"`
	TokenURL     string         `json:"token_url"`
	AuthArgs     map[string]any `json:"auth_args"`

	// S3
	Bucket          string `json:"bucket"`
	AccessKey       string `json:"access_key"`
	SecretAccessKey string `json:"secret_access_key"`
	Port            int    `json:"port"`

	// Swift
	User string `json:"user"`
	Key  string `json:"key"`
}

// EffectiveGrantType returns GrantType, falling back to the misspelled
// GrandType field some credentials files carry (spec.md §9). The caller is
// expected to have already logged the warning from LoadCredentials.
func (e CredentialEntry) EffectiveGrantType() string {
	if e.GrantType != "" {
		return e.GrantType
	}
	return e.GrandType
}

// Credentials is the parsed credentials file: a lookup map keyed by host,
// URL prefix, or "s3://bucket", matched longest-prefix-first by Lookup.
type Credentials struct {
	entries map[string]CredentialEntry
}

// LoadCredentials reads and parses the JSON credentials file at path.
func LoadCredentials(path string) (*Credentials, apperrors.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.ErrConfig.MsgErr("failed to open credentials file "+path, err)
	}
	defer f.Close()
	return parseCredentials(f)
}

func parseCredentials(r io.Reader) (*Credentials, apperrors.Error) {
	var raw map[string]CredentialEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, apperrors.ErrConfig.MsgErr("failed to parse credentials file", err)
	}
	for key, entry := range raw {
		if entry.GrandType != "" && entry.GrantType == "" {
			log.Warn().Str("key", key).Msg("credentials entry uses the misspelled \"grand_type\" field; accepted, but \"grant_type\" should be used")
		}
	}
	return &Credentials{entries: raw}, nil
}

// Lookup finds the credential entry whose key is the longest prefix of
// hostOrURL, matching spec.md §6's "host or URL prefix or s3://bucket"
// rule. ok is false when no entry's key is a prefix of hostOrURL.
func (c *Credentials) Lookup(hostOrURL string) (CredentialEntry, bool) {
	if c == nil {
		return CredentialEntry{}, false
	}
	var best string
	var bestEntry CredentialEntry
	found := false
	for key, entry := range c.entries {
		if !strings.HasPrefix(hostOrURL, key) {
			continue
		}
		if !found || len(key) > len(best) {
			best = key
			bestEntry = entry
			found = true
		}
	}
	return bestEntry, found
}
