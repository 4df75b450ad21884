package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/chatdesk/models"
	"github.com/cppla/chatdesk/providers"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.UploadedFile{}))
	return db
}

// fakeProvider records what it was sent and answers with reply or err.
type fakeProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	received [][]providers.Message
	// when set, Complete signals started and waits for release
	started  chan struct{}
	release  chan struct{}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(ctx context.Context, messages []providers.Message) (string, error) {
	p.mu.Lock()
	p.received = append(p.received, messages)
	p.mu.Unlock()
	if p.release != nil {
		p.started <- struct{}{}
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}
