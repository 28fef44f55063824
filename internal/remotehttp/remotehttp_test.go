package remotehttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stcorp/muninn/internal/remotehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyRecognizesHTTPAndHTTPS(t *testing.T) {
	b := remotehttp.New()
	assert.True(t, b.Identify("http://example.com/a.bin"))
	assert.True(t, b.Identify("https://example.com/a.bin"))
	assert.False(t, b.Identify("ftp://example.com/a.bin"))
	assert.False(t, b.Identify("s3://bucket/a.bin"))
}

func TestPullWritesResponseBodyToTargetDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("product bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	b := remotehttp.New()
	paths, err := b.Pull(context.Background(), srv.URL, "product.bin", dir)
	require.Nil(t, err)
	require.Len(t, paths, 1)

	data, rerr := os.ReadFile(paths[0])
	require.NoError(t, rerr)
	assert.Equal(t, "product bytes", string(data))
}

func TestPullFailsOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := remotehttp.New()
	_, err := b.Pull(context.Background(), srv.URL, "product.bin", t.TempDir())
	assert.NotNil(t, err)
}

func TestPullRetriesOnceOnTimeout(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			time.Sleep(50 * time.Millisecond)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	b := remotehttp.New()
	require.Nil(t, b.SetConfiguration(map[string]string{"timeout": "10ms"}))

	paths, err := b.Pull(context.Background(), srv.URL, "product.bin", t.TempDir())
	require.Nil(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 2, attempts)
}

func TestSetConfigurationRejectsInvalidTimeout(t *testing.T) {
	b := remotehttp.New()
	err := b.SetConfiguration(map[string]string{"timeout": "not-a-duration"})
	assert.NotNil(t, err)
}

func TestSetConfigurationAcceptsBareSeconds(t *testing.T) {
	b := remotehttp.New()
	err := b.SetConfiguration(map[string]string{"timeout": "5"})
	assert.Nil(t, err)
}
