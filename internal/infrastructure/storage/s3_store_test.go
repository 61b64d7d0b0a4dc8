package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logitoon-ai-api/internal/config"
)

func TestPanelKey(t *testing.T) {
	assert.Equal(t, "comics/abc/panel-01.png", PanelKey("abc", 1, "image/png"))
	assert.Equal(t, "comics/abc/panel-12.jpg", PanelKey("abc", 12, "image/jpeg"))
	assert.Equal(t, "comics/abc/panel-03.png", PanelKey("abc", 3, ""))
	assert.Equal(t, "comics/abc", ComicPrefix("abc"))
}

func TestNewS3Store(t *testing.T) {
	_, err := NewS3Store(&config.S3Config{Bucket: "b"})
	require.Error(t, err)

	_, err = NewS3Store(&config.S3Config{Endpoint: "localhost:9000"})
	require.Error(t, err)

	s, err := NewS3Store(&config.S3Config{Endpoint: "localhost:9000", Bucket: "panels", AccessKeyID: "k", SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, time.Hour, s.presignExpiry)
}
