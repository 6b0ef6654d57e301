package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/test/helpers"
)

// fakeBucket is an in-memory bucket behind the three S3 seams.
type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	created   bool
	headErr   error
	uploadErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBucket) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeBucket) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeBucket) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &manager.UploadOutput{Location: "s3://bucket/" + *in.Key}, nil
}

func (f *fakeBucket) Download(_ context.Context, w io.WriterAt, in *s3.GetObjectInput, _ ...func(*manager.Downloader)) (int64, error) {
	f.mu.Lock()
	data, ok := f.objects[*in.Key]
	f.mu.Unlock()
	if !ok {
		return 0, &types.NoSuchKey{}
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func newTestStorage(f *fakeBucket) *S3Storage {
	return newS3Storage(f, f, f, &S3Config{Bucket: "bucket", Region: "eu-west-1", Prefix: "/station-1/"}, helpers.TestLogger())
}

func TestS3Storage_KeyValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFakeBucket()
	s := newTestStorage(f)

	_, err := s.Get(ctx, domain.DefaultCartKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, domain.DefaultCartKey, `[{"item_code":"A","quantity":2}]`))
	assert.Contains(t, f.objects, "station-1/state/scannedItems.json")
	assert.Equal(t, "application/json", f.types["station-1/state/scannedItems.json"])

	got, err := s.Get(ctx, domain.DefaultCartKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"item_code":"A","quantity":2}]`, got)

	require.NoError(t, s.Delete(ctx, domain.DefaultCartKey))
	_, err = s.Get(ctx, domain.DefaultCartKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestS3Storage_UploadFailure(t *testing.T) {
	f := newFakeBucket()
	f.uploadErr = errors.New("access denied")
	s := newTestStorage(f)

	err := s.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Storage_PutExport(t *testing.T) {
	ctx := context.Background()
	f := newFakeBucket()
	s := newTestStorage(f)

	key, err := s.PutExport(ctx, "items.xlsx", []byte("xlsx"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "exports/"))
	assert.True(t, strings.HasSuffix(key, "/items.xlsx"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "exports/missing.xlsx")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetPresignedURL(ctx, key, 0)
	assert.Error(t, err)
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	f := newFakeBucket()
	s := newTestStorage(f)
	require.NoError(t, s.ensureBucket(context.Background()))
	assert.False(t, f.created)

	f.headErr = &types.NotFound{}
	require.NoError(t, s.ensureBucket(context.Background()))
	assert.True(t, f.created)
}

func TestS3Storage_Health(t *testing.T) {
	f := newFakeBucket()
	s := newTestStorage(f)
	require.NoError(t, s.Health(context.Background()))

	f.headErr = errors.New("forbidden")
	assert.ErrorContains(t, s.Health(context.Background()), "bucket bucket unreachable")
}
