package s3archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	headErr error
	created []string
	puts    map[string][]byte
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_WritesUnderPrefix(t *testing.T) {
	api := &fakeS3{}
	c, err := newClient(context.Background(), api, &Config{BucketName: "hooks", Prefix: "webhooks", Region: "us-east-2"})
	require.NoError(t, err)

	require.NoError(t, c.Archive(context.Background(), "2026/01/02/evt_1.json", []byte(`{"id":"evt_1"}`)))
	assert.Equal(t, []byte(`{"id":"evt_1"}`), api.puts["hooks/webhooks/2026/01/02/evt_1.json"])
	assert.Empty(t, api.created)
}

func TestNewClient_CreatesMissingBucketOutsideProd(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	api := &fakeS3{headErr: errors.New("not found")}

	_, err := newClient(context.Background(), api, &Config{BucketName: "hooks", Region: "us-east-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hooks"}, api.created)
}

func TestNewClient_MissingBucketInProd(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	api := &fakeS3{headErr: errors.New("forbidden")}

	_, err := newClient(context.Background(), api, &Config{BucketName: "hooks"})
	assert.Error(t, err)
	assert.Empty(t, api.created)
}

func TestConfig_Disabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.IsEnabled())
	_, err := NewClient(context.Background(), aws.Config{}, cfg)
	assert.Error(t, err)
	assert.Equal(t, "a/b", (&Config{}).GetObjectKey("/a/b"))
}
