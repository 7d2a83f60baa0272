package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	"github.com/angelmondragon/wishlist-backend/pkg/enums"
)

func seedEvent(t *testing.T, conn *gorm.DB, repo *Repository, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWelcomeEmailRequested,
		AggregateType: enums.AggregateUser,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.Insert(conn, row))
	return row
}

func TestFetchUnpublishedSkipsDeliveredAndExhausted(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	base := time.Now().UTC().Add(-time.Hour)

	second := seedEvent(t, conn, repo, base.Add(2*time.Minute))
	first := seedEvent(t, conn, repo, base.Add(time.Minute))
	delivered := seedEvent(t, conn, repo, base)
	exhausted := seedEvent(t, conn, repo, base)

	require.NoError(t, repo.MarkPublishedTx(conn, delivered.ID))
	require.NoError(t, repo.MarkTerminalTx(conn, exhausted.ID, errors.New("bad payload"), 5))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	rows, err = repo.FetchUnpublishedForPublish(conn, 1, 5)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	row := seedEvent(t, conn, repo, time.Now().UTC())

	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("timeout")))
	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("unavailable")))

	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, 2, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "unavailable", *stored.LastError)
	assert.Nil(t, stored.PublishedAt)
}

func TestCountParkedAndDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	parked := seedEvent(t, conn, repo, now)
	pending := seedEvent(t, conn, repo, now)
	old := seedEvent(t, conn, repo, now)
	recent := seedEvent(t, conn, repo, now)

	require.NoError(t, repo.MarkTerminalTx(conn, parked.ID, errors.New("malformed"), 3))
	require.NoError(t, repo.MarkFailedTx(conn, pending.ID, errors.New("timeout")))
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", old.ID).
		Update("published_at", now.Add(-48*time.Hour)).Error)
	require.NoError(t, repo.MarkPublishedTx(conn, recent.ID))

	count, err := repo.CountParked(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := repo.DeletePublishedBefore(conn, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(3), remaining)
}

func TestRepositoryRequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)
	assert.Error(t, repo.Insert(nil, models.OutboxEvent{}))
	_, err := repo.FetchUnpublishedForPublish(nil, 1, 1)
	assert.Error(t, err)
}
