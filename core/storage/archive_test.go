package storage

import (
	"context"
	"fmt"
	"testing"

	"mailwatch/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestEnsureBucket(t *testing.T) {
	t.Run("bucket already exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "reports").Return(true, nil)

		a := NewArchive(client, "reports")
		err := a.EnsureBucket(context.Background())
		assert.NoError(t, err)
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bucket created when missing", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "reports").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "reports", mock.Anything).Return(nil)

		a := NewArchive(client, "reports")
		err := a.EnsureBucket(context.Background())
		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("existence check failure", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "reports").Return(false, fmt.Errorf("endpoint down"))

		a := NewArchive(client, "reports")
		err := a.EnsureBucket(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "endpoint down")
	})
}

func TestPutReport(t *testing.T) {
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, "reports", "reports/run-42.json",
		mock.Anything, int64(2), mock.Anything).Return(minio.UploadInfo{}, nil)

	a := NewArchive(client, "reports")
	err := a.PutReport(context.Background(), "run-42", []byte("{}"))
	assert.NoError(t, err)
	client.AssertExpectations(t)
}
