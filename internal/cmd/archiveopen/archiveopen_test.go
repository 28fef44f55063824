package archiveopen

import (
	"context"
	"testing"

	"github.com/stcorp/muninn/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDatabase(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Database: "oracle", Storage: "none"}}
	_, _, err := Open(context.Background(), cfg)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "unknown database backend")
}

func TestOpenRejectsMissingSQLiteSection(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Database: "sqlite", Storage: "none"}}
	_, _, err := Open(context.Background(), cfg)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "no [sqlite] section")
}

func TestOpenSelectsSQLiteAndNoneStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Archive: config.ArchiveConfig{Database: "sqlite", Storage: "none"},
		SQLite:  &config.SQLiteConfig{ConnectionString: dir + "/catalogue.db"},
	}
	a, closer, err := Open(context.Background(), cfg)
	require.Nil(t, err)
	require.NotNil(t, a)
	assert.NoError(t, closer())
}

func TestOpenRejectsUnknownStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Archive: config.ArchiveConfig{Database: "sqlite", Storage: "tape"},
		SQLite:  &config.SQLiteConfig{ConnectionString: dir + "/catalogue.db"},
	}
	_, _, err := Open(context.Background(), cfg)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestOpenRegistersGenericProductTypes(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Archive: config.ArchiveConfig{
			Database:              "sqlite",
			Storage:                "fs",
			ProductTypeExtensions: []string{"alpha", "beta"},
		},
		SQLite: &config.SQLiteConfig{ConnectionString: dir + "/catalogue.db"},
		FS:     &config.FSConfig{Root: dir},
	}
	a, _, err := Open(context.Background(), cfg)
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, a.ProductTypes())
}
