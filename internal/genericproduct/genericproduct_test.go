package genericproduct_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stcorp/muninn/internal/genericproduct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyRequiresAtLeastOnePath(t *testing.T) {
	p := genericproduct.New("abc")
	assert.True(t, p.Identify(context.Background(), []string{"a.dat"}))
	assert.False(t, p.Identify(context.Background(), nil))
}

func TestAnalyzeReturnsEmptyProperties(t *testing.T) {
	p := genericproduct.New("abc")
	props, tags, err := p.Analyze(context.Background(), []string{"a.dat"})
	require.Nil(t, err)
	assert.Empty(t, props.Namespaces())
	assert.Nil(t, tags)
}

func TestArchivePathBucketsByProductTypeAndYear(t *testing.T) {
	p := genericproduct.New("abc")
	path, err := p.ArchivePath(context.Background(), nil)
	require.Nil(t, err)
	assert.Equal(t, "abc/"+strconv.Itoa(time.Now().Year()), path)
}
