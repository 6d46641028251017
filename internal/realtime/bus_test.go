package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/logger"
	"github.com/oggyb/devconnect/internal/realtime"
	"github.com/oggyb/devconnect/internal/testutil"
)

func TestRedisBus_ForwardsToLocal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rc, _ := testutil.NewRedis(t)
	bus := realtime.NewRedisBus(rc.Client, "", logger.Discard())
	local := &fakeBroadcaster{}
	require.NoError(t, bus.Run(ctx, local))

	require.NoError(t, bus.ToRoom(ctx, realtime.ChatRoom(1), realtime.EventUserTyping, map[string]any{"userId": 2}))
	require.NoError(t, bus.ToAll(ctx, realtime.EventOnlineUsersCount, 3))

	require.Eventually(t, func() bool { return len(local.all()) == 2 }, 2*time.Second, 10*time.Millisecond)

	got := local.all()
	assert.Equal(t, realtime.ChatRoom(1), got[0].room)
	assert.Equal(t, realtime.EventUserTyping, got[0].event)
	assert.JSONEq(t, `{"userId":2}`, string(got[0].payload.(json.RawMessage)))

	assert.Equal(t, "", got[1].room)
	assert.JSONEq(t, `3`, string(got[1].payload.(json.RawMessage)))
}
