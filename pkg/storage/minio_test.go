package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"fsdm-chat-go/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, object, contentType string
	body                        []byte
	err                         error
}

func (f *fakePutter) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	f.bucket, f.object, f.contentType = bucketName, objectName, opts.ContentType
	f.body, _ = io.ReadAll(reader)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
}

func TestTranscriptArchiver_Archive(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	putter := &fakePutter{}
	a := &TranscriptArchiver{client: putter, bucket: "chat-transcripts", now: func() time.Time { return at }}

	msgs := []model.Message{
		model.NewMessage("welcome", model.SenderBot),
		model.NewMessage("question", model.SenderUser),
	}
	name, err := a.Archive(context.Background(), "chatHistory", msgs)
	require.NoError(t, err)

	assert.Equal(t, "transcripts/chatHistory/20240601T103000.000000000Z.json", name)
	assert.Equal(t, "chat-transcripts", putter.bucket)
	assert.Equal(t, name, putter.object)
	assert.Equal(t, "application/json", putter.contentType)

	var got []model.Message
	require.NoError(t, json.Unmarshal(putter.body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, msgs[1].ID, got[1].ID)
}

func TestTranscriptArchiver_Error(t *testing.T) {
	a := &TranscriptArchiver{client: &fakePutter{err: errors.New("denied")}, bucket: "b", now: time.Now}
	_, err := a.Archive(context.Background(), "chatHistory", nil)
	assert.Error(t, err)
}
