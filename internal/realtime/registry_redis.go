package realtime

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	registryPrefix = "realtime:sessions:"
	onlineKey      = "realtime:online"
)

// deregisterScript removes a session and, when it was the last one, the user
// from the online set. Returns {removed, remaining}.
var deregisterScript = redis.NewScript(`
local removed = redis.call('SREM', KEYS[1], ARGV[1])
local remaining = redis.call('SCARD', KEYS[1])
if remaining == 0 then
	redis.call('SREM', KEYS[2], ARGV[2])
end
return {removed, remaining}
`)

// RedisRegistry shares session state between instances. Each user has a set
// of session ids; realtime:online holds the ids of users with at least one.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func sessionsKey(userID uint64) string {
	return fmt.Sprintf("%s%d", registryPrefix, userID)
}

func (r *RedisRegistry) Register(ctx context.Context, userID uint64, sessionID string) (bool, error) {
	var (
		added *redis.IntCmd
		count *redis.IntCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, sessionsKey(userID), sessionID)
		count = pipe.SCard(ctx, sessionsKey(userID))
		pipe.SAdd(ctx, onlineKey, userID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return added.Val() == 1 && count.Val() == 1, nil
}

func (r *RedisRegistry) Deregister(ctx context.Context, userID uint64, sessionID string) (bool, error) {
	res, err := deregisterScript.Run(ctx, r.client,
		[]string{sessionsKey(userID), onlineKey},
		sessionID, userID,
	).Int64Slice()
	if err != nil {
		return false, err
	}
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected deregister reply %v", res)
	}
	return res[0] == 1 && res[1] == 0, nil
}

func (r *RedisRegistry) Sessions(ctx context.Context, userID uint64) ([]string, error) {
	out, err := r.client.SMembers(ctx, sessionsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (r *RedisRegistry) Online(ctx context.Context) ([]uint64, error) {
	members, err := r.client.SMembers(ctx, onlineKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
