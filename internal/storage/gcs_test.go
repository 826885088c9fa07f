package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL_GsURI(t *testing.T) {
	ref, err := ParseObjectURL("gs://my-bucket/u1/s1/video_20260101_000000.mp4")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", ref.Bucket)
	assert.Equal(t, "u1/s1/video_20260101_000000.mp4", ref.Name)
}

func TestParseObjectURL_PublicURL(t *testing.T) {
	ref, err := ParseObjectURL("https://storage.googleapis.com/my-bucket/u1/s1/audio_1.wav")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", ref.Bucket)
	assert.Equal(t, "u1/s1/audio_1.wav", ref.Name)
}

func TestParseObjectURL_Invalid(t *testing.T) {
	cases := []string{
		"gs://bucket-only",
		"gs://",
		"https://example.com/bucket/object",
		"not-a-url-at-all",
	}
	for _, raw := range cases {
		_, err := ParseObjectURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/b/u/s/video.mp4",
		PublicURL("b", "u/s/video.mp4"),
	)
}

func TestObjectName(t *testing.T) {
	name := ObjectName("u1", "s1", "video", ".mp4")

	assert.True(t, strings.HasPrefix(name, "u1/s1/video_"), name)
	assert.True(t, strings.HasSuffix(name, ".mp4"), name)
}

func TestRoundTrip_UploadNameParsesBack(t *testing.T) {
	name := ObjectName("u1", "s1", "audio", ".wav")
	url := PublicURL("scratch", name)

	ref, err := ParseObjectURL(url)
	require.NoError(t, err)
	assert.Equal(t, "scratch", ref.Bucket)
	assert.Equal(t, name, ref.Name)
}
