package friends

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/mutualfriends/backend/internal/models"
)

// FriendSetKeyPrefix identifies friend set entries in Redis.
const FriendSetKeyPrefix = "mutuals:friends:"

// RedisSetCache shares friend sets between service instances through Redis.
type RedisSetCache struct {
	client rueidis.Client
}

// NewRedisSetCache wraps an existing Redis client.
func NewRedisSetCache(client rueidis.Client) *RedisSetCache {
	return &RedisSetCache{client: client}
}

func friendSetKey(userID models.UserID) string {
	return FriendSetKeyPrefix + strconv.FormatInt(int64(userID), 10)
}

// Get loads the cached set for userID. A missing key is a miss, not an error.
func (c *RedisSetCache) Get(ctx context.Context, userID models.UserID) (models.FriendSet, bool, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(friendSetKey(userID)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get friend set %d: %w", userID, err)
	}

	var ids []models.UserID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, fmt.Errorf("decode friend set %d: %w", userID, err)
	}
	return models.NewFriendSet(ids), true, nil
}

// Set stores set for userID with the given expiry.
func (c *RedisSetCache) Set(ctx context.Context, userID models.UserID, set models.FriendSet, ttl time.Duration) error {
	if set == nil {
		set = models.FriendSet{}
	}
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode friend set %d: %w", userID, err)
	}

	cmd := c.client.B().Set().Key(friendSetKey(userID)).Value(rueidis.BinaryString(data)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set friend set %d: %w", userID, err)
	}
	return nil
}

// Delete removes the cached set for userID.
func (c *RedisSetCache) Delete(ctx context.Context, userID models.UserID) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(friendSetKey(userID)).Build()).Error(); err != nil {
		return fmt.Errorf("delete friend set %d: %w", userID, err)
	}
	return nil
}

var _ SetCache = (*RedisSetCache)(nil)
