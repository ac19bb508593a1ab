package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	buckets   map[string]bool
	existsErr error
	putErr    error
	made      []string
	puts      []string
	putOpts   minio.PutObjectOptions
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	f.puts = append(f.puts, bucket+"/"+object)
	f.putOpts = opts
	data, err := os.ReadFile(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data)), ETag: "etag-1"}, nil
}

func writeLog(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "pids_mutated_20240309_140507.txt")
	require.NoError(t, os.WriteFile(p, []byte("doi:1\ndoi:3\n"), 0o600))
	return p
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk", Bucket: "dvbatch"}
	require.NoError(t, valid.Validate())

	err := Config{}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
	assert.ErrorIs(t, err, ErrMissingBucket)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	noSecret := valid
	noSecret.SecretKey = ""
	assert.ErrorIs(t, noSecret.Validate(), ErrMissingCredentials)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{prefix: "", path: "/out/pids_mutated_1.txt", want: "pids_mutated_1.txt"},
		{prefix: "runs", path: "/out/pids_mutated_1.txt", want: "runs/pids_mutated_1.txt"},
		{prefix: "/runs/prod/", path: "pids_mutated_1.txt", want: "runs/prod/pids_mutated_1.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.prefix, tt.path))
		})
	}
}

func TestUploader_Upload(t *testing.T) {
	t.Run("CreatesMissingBucket", func(t *testing.T) {
		store := &fakeStore{buckets: map[string]bool{}}
		u, err := NewUploaderWithStore(store, Config{Bucket: "dvbatch", Prefix: "runs"})
		require.NoError(t, err)

		info, err := u.Upload(context.Background(), writeLog(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"dvbatch"}, store.made)
		assert.Equal(t, []string{"dvbatch/runs/pids_mutated_20240309_140507.txt"}, store.puts)
		assert.Equal(t, contentType, store.putOpts.ContentType)
		assert.Equal(t, Info{Bucket: "dvbatch", Key: "runs/pids_mutated_20240309_140507.txt", Size: 12, ETag: "etag-1"}, info)
	})

	t.Run("ExistingBucket", func(t *testing.T) {
		store := &fakeStore{buckets: map[string]bool{"dvbatch": true}}
		u, err := NewUploaderWithStore(store, Config{Bucket: "dvbatch"})
		require.NoError(t, err)

		_, err = u.Upload(context.Background(), writeLog(t))
		require.NoError(t, err)
		assert.Empty(t, store.made)
	})

	t.Run("MissingFile", func(t *testing.T) {
		store := &fakeStore{buckets: map[string]bool{}}
		u, err := NewUploaderWithStore(store, Config{Bucket: "dvbatch"})
		require.NoError(t, err)

		_, err = u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Empty(t, store.puts)
	})

	t.Run("StoreErrors", func(t *testing.T) {
		store := &fakeStore{buckets: map[string]bool{}, existsErr: errors.New("connection refused")}
		u, err := NewUploaderWithStore(store, Config{Bucket: "dvbatch"})
		require.NoError(t, err)
		_, err = u.Upload(context.Background(), writeLog(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		store = &fakeStore{buckets: map[string]bool{"dvbatch": true}, putErr: errors.New("access denied")}
		u, err = NewUploaderWithStore(store, Config{Bucket: "dvbatch"})
		require.NoError(t, err)
		_, err = u.Upload(context.Background(), writeLog(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	})
}

func TestNewUploader(t *testing.T) {
	_, err := NewUploader(Config{})
	require.Error(t, err)

	u, err := NewUploader(Config{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk", Bucket: "dvbatch"})
	require.NoError(t, err)
	assert.NotNil(t, u)

	_, err = NewUploaderWithStore(nil, Config{Bucket: "dvbatch"})
	require.Error(t, err)
}
