package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNATS(t *testing.T) *nats.Conn {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestNATSPublisher_MessageCreated(t *testing.T) {
	nc := setupNATS(t)
	sub, err := nc.SubscribeSync(SubjectMessageCreated)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	db := setupTestDB(t)
	author := createUser(t, db, "author")
	service := NewMessageService(db, NewNATSPublisher(nc, slog.Default()))

	msg, err := service.Create(context.Background(), author.ID, "over the wire")
	require.NoError(t, err)

	received, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var event MessageEvent
	require.NoError(t, json.Unmarshal(received.Data, &event))
	assert.Equal(t, msg.ID, event.MessageID)
	assert.Equal(t, author.ID, event.UserID)
	assert.Equal(t, "over the wire", event.Text)
}

func TestNATSPublisher_Follow(t *testing.T) {
	nc := setupNATS(t)
	sub, err := nc.SubscribeSync("warbler.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	db := setupTestDB(t)
	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	service := NewFollowService(db, NewNATSPublisher(nc, slog.Default()))
	require.NoError(t, service.Follow(context.Background(), a.ID, b.ID))

	received, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, SubjectUserFollowed, received.Subject)

	var event FollowEvent
	require.NoError(t, json.Unmarshal(received.Data, &event))
	assert.Equal(t, a.ID, event.FollowerID)
	assert.Equal(t, b.ID, event.FollowedID)
}

func TestNATSPublisher_ClosedConn(t *testing.T) {
	nc := setupNATS(t)
	nc.Close()

	// Publishing is best effort; a dead connection must not panic.
	assert.NotPanics(t, func() {
		NewNATSPublisher(nc, slog.Default()).Publish(SubjectMessageLiked, LikeEvent{UserID: 1, MessageID: 2})
	})
}
