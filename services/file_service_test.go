package services

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/chatdesk/models"
	"github.com/cppla/chatdesk/store"
)

type fileFixture struct {
	svc      *FileService
	db       *gorm.DB
	sessions *store.MemorySessionStore
	root     string
}

func newFileFixture(t *testing.T) fileFixture {
	t.Helper()
	root := t.TempDir()
	blobs, err := store.NewLocalBlobStore(root, "/media")
	require.NoError(t, err)
	db := newTestDB(t)
	sessions := store.NewMemorySessionStore(0)
	return fileFixture{
		svc:      NewFileService(db, blobs, sessions, nil),
		db:       db,
		sessions: sessions,
		root:     root,
	}
}

func (f fileFixture) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func (f fileFixture) recordCount(t *testing.T, sessionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.UploadedFile{}).Where("session_id = ?", sessionID).Count(&n).Error)
	return n
}

func textUpload(sessionID, name, body string) UploadRequest {
	return UploadRequest{
		SessionID:   sessionID,
		Filename:    name,
		Size:        int64(len(body)),
		ContentType: "text/plain",
		Body:        strings.NewReader(body),
	}
}

func TestUploadSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFileFixture(t)

	info, err := f.svc.Upload(ctx, textUpload("S2", "test.txt", "hello world!"))
	require.NoError(t, err)
	assert.Equal(t, "test.txt", info.Filename)
	assert.Equal(t, "12.0 B", info.Size)
	assert.Equal(t, "text/plain", info.Type)
	assert.NotEmpty(t, info.ID)
	assert.True(t, strings.HasPrefix(info.URL, "/media/uploads/S2/"), info.URL)
	assert.NotEmpty(t, info.UploadedAt)

	assert.EqualValues(t, 1, f.recordCount(t, "S2"))
	assert.Equal(t, 1, f.blobCount(t))

	turns, err := f.sessions.History(ctx, "S2")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "📎 Uploaded file: test.txt (12.0 B)", turns[0].Content)
	require.NotNil(t, turns[0].FileInfo)
	assert.Equal(t, info.ID, turns[0].FileInfo.ID)
	assert.Empty(t, turns[0].FileInfo.UploadedAt)
}

func TestUploadAcceptsContentTypeParameters(t *testing.T) {
	f := newFileFixture(t)
	req := textUpload("S1", "notes.md", "# hi")
	req.ContentType = "text/markdown; charset=utf-8"

	info, err := f.svc.Upload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", info.Type)
}

func TestUploadValidation(t *testing.T) {
	cases := []struct {
		name string
		req  UploadRequest
		kind Kind
		msg  string
	}{
		{"missing session", textUpload("", "a.txt", "x"), KindInput, "Session ID is required"},
		{"missing file", UploadRequest{SessionID: "S1"}, KindInput, "No file provided"},
		{"session id too long", textUpload(strings.Repeat("s", models.MaxSessionIDLength+1), "a.txt", "x"), KindInput, "Session ID must be at most 100 characters"},
		{"too large", UploadRequest{SessionID: "S1", Filename: "big.txt", Size: MaxUploadSize + 1, ContentType: "text/plain", Body: strings.NewReader("x")}, KindValidation, "File size exceeds 10MB limit"},
		{"bad type", UploadRequest{SessionID: "S1", Filename: "run.exe", Size: 3, ContentType: "application/x-msdownload", Body: strings.NewReader("MZ!")}, KindValidation, "File type application/x-msdownload not allowed"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFileFixture(t)
			_, err := f.svc.Upload(context.Background(), c.req)
			require.Error(t, err)
			assert.Equal(t, c.kind, KindOf(err))
			assert.Contains(t, err.Error(), c.msg)

			assert.EqualValues(t, 0, f.recordCount(t, "S1"))
			assert.Equal(t, 0, f.blobCount(t))
			turns, _ := f.sessions.History(context.Background(), "S1")
			assert.Empty(t, turns)
		})
	}
}

func TestUploadUnderDeclaredSizeIsCapped(t *testing.T) {
	f := newFileFixture(t)
	body := bytes.Repeat([]byte("a"), MaxUploadSize+10)
	req := UploadRequest{SessionID: "S1", Filename: "liar.txt", Size: 10, ContentType: "text/plain", Body: bytes.NewReader(body)}

	_, err := f.svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, f.blobCount(t))
	assert.EqualValues(t, 0, f.recordCount(t, "S1"))
}

func TestUploadRemovesBlobWhenRecordFails(t *testing.T) {
	f := newFileFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&models.UploadedFile{}))

	_, err := f.svc.Upload(context.Background(), textUpload("S1", "a.txt", "data"))
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, 0, f.blobCount(t))
}

func TestUploadAcceptsLongestSessionID(t *testing.T) {
	f := newFileFixture(t)
	id := strings.Repeat("é", models.MaxSessionIDLength)
	_, err := f.svc.Upload(context.Background(), textUpload(id, "a.txt", "x"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.recordCount(t, id))
}

func TestUploadSanitizesFilename(t *testing.T) {
	f := newFileFixture(t)
	info, err := f.svc.Upload(context.Background(), textUpload("S1", "../../<b>report</b>.txt", "x"))
	require.NoError(t, err)
	assert.Equal(t, "report.txt", info.Filename)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFileFixture(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.txt", "new.txt", "mid.txt"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		require.NoError(t, f.db.Create(&models.UploadedFile{
			SessionID:        "S1",
			OriginalFilename: name,
			StorageKey:       "uploads/S1/" + name,
			FileSize:         2048,
			ContentType:      "text/plain",
			CreatedAt:        base.Add(offsets[i]),
		}).Error)
	}
	require.NoError(t, f.db.Create(&models.UploadedFile{
		SessionID: "other", OriginalFilename: "x.txt", StorageKey: "uploads/other/x.txt", ContentType: "text/plain",
	}).Error)

	files, err := f.svc.List(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "new.txt", files[0].Filename)
	assert.Equal(t, "mid.txt", files[1].Filename)
	assert.Equal(t, "old.txt", files[2].Filename)
	assert.Equal(t, "2.0 KB", files[0].Size)

	empty, err := f.svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.svc.List(ctx, "")
	assert.Equal(t, KindInput, KindOf(err))
}

func TestDeleteRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFileFixture(t)
	info, err := f.svc.Upload(ctx, textUpload("S1", "mine.txt", "secret"))
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, info.ID, "S2")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.EqualValues(t, 1, f.recordCount(t, "S1"))
	assert.Equal(t, 1, f.blobCount(t))

	name, err := f.svc.Delete(ctx, info.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, "mine.txt", name)
	assert.EqualValues(t, 0, f.recordCount(t, "S1"))
	assert.Equal(t, 0, f.blobCount(t))

	_, err = f.svc.Delete(ctx, info.ID, "S1")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteRequiresIDs(t *testing.T) {
	f := newFileFixture(t)
	_, err := f.svc.Delete(context.Background(), "", "S1")
	assert.Equal(t, KindInput, KindOf(err))
	assert.Contains(t, err.Error(), "File ID is required")

	_, err = f.svc.Delete(context.Background(), "abc", "")
	assert.Equal(t, KindInput, KindOf(err))
}

func TestPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	f := newFileFixture(t)
	_, err := f.svc.Upload(ctx, textUpload("S1", "keep.txt", "k"))
	require.NoError(t, err)
	old, err := f.svc.Upload(ctx, textUpload("S1", "old.txt", "o"))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.UploadedFile{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := f.svc.PurgeOlderThan(ctx, time.Now().Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := f.svc.List(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.txt", files[0].Filename)
	assert.Equal(t, 1, f.blobCount(t))
}
