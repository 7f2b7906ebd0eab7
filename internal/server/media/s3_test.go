package media

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/Eyad010/postfeed/internal/server/config"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func newTestStore(f *fakeObjects) *S3Store {
	s := newS3Store(f, "postfeed", "http://127.0.0.1:9000/")
	s.now = func() time.Time { return time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestUpload(t *testing.T) {
	f := &fakeObjects{}
	s := newTestStore(f)

	img, err := s.Upload(context.Background(), FolderPosts, Upload{
		Body: bytes.NewReader([]byte("png")), Size: 3, ContentType: "image/png",
	})
	require.NoError(t, err)

	require.Len(t, f.puts, 1)
	in := f.puts[0]
	assert.Equal(t, "postfeed", aws.ToString(in.Bucket))
	assert.Equal(t, img.PublicID, aws.ToString(in.Key))
	assert.Equal(t, int64(3), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))

	assert.True(t, strings.HasPrefix(img.PublicID, "posts/2024/3/7/"), img.PublicID)
	assert.Equal(t, "http://127.0.0.1:9000/postfeed/"+img.PublicID, img.URL)
	assert.Equal(t, img.PublicID, s.PublicID(img.URL))
}

func TestUpload_UniqueKeys(t *testing.T) {
	s := newTestStore(&fakeObjects{})

	a, err := s.Upload(context.Background(), FolderUsers, Upload{Body: bytes.NewReader(nil)})
	require.NoError(t, err)
	b, err := s.Upload(context.Background(), FolderUsers, Upload{Body: bytes.NewReader(nil)})
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicID, b.PublicID)
}

func TestUpload_Error(t *testing.T) {
	s := newTestStore(&fakeObjects{err: errors.New("denied")})

	_, err := s.Upload(context.Background(), FolderPosts, Upload{Body: bytes.NewReader(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestRemove(t *testing.T) {
	f := &fakeObjects{}
	s := newTestStore(f)

	require.NoError(t, s.Remove(context.Background(), "posts/a"))
	require.NoError(t, s.Remove(context.Background(), ""))

	require.Len(t, f.deletes, 1)
	assert.Equal(t, "posts/a", aws.ToString(f.deletes[0].Key))
}

func TestPublicID_ForeignURL(t *testing.T) {
	s := newTestStore(&fakeObjects{})
	assert.Equal(t, "", s.PublicID("https://cdn.example.com/x.png"))
	assert.Equal(t, "", s.PublicID(""))
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	cfg := &sc.Config{
		S3Region: "eu-west-1", S3RootUser: "admin", S3RootPassword: "pw",
		S3Bucket: "b", S3BaseEndpoint: "http://minio:9000",
	}
	store, err := NewS3Store(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "b", store.bucket)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), &sc.Config{})
	require.Error(t, err)
}
