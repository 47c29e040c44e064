package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/mutualfriends/backend/internal/models"
)

const (
	// ResultKeyPrefix identifies cached tooltip results in Redis.
	ResultKeyPrefix = "mutuals:result:"
	// UserIndexPrefix identifies the per-user sets of result keys.
	UserIndexPrefix = "mutuals:user:"

	// indexTTL outlives the longest configurable result TTL so an index never
	// expires before the entries it points at.
	indexTTL = 25 * time.Hour

	scanBatch = 200
)

// RedisTier shares tooltip results between service instances. Each user has
// a set of the result keys they take part in so invalidation never scans.
type RedisTier struct {
	client rueidis.Client
	now    func() time.Time
}

// NewRedisTier wraps an existing Redis client.
func NewRedisTier(client rueidis.Client) *RedisTier {
	return &RedisTier{client: client, now: time.Now}
}

func resultKey(key Key) string {
	return ResultKeyPrefix + strconv.FormatInt(int64(key.Viewer), 10) + ":" + strconv.FormatInt(int64(key.Target), 10)
}

func userIndexKey(userID models.UserID) string {
	return UserIndexPrefix + strconv.FormatInt(int64(userID), 10)
}

// Get loads the entry for key. Missing keys are misses.
func (t *RedisTier) Get(ctx context.Context, key Key) (models.CachedResult, bool, error) {
	data, err := t.client.Do(ctx, t.client.B().Get().Key(resultKey(key)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return models.CachedResult{}, false, nil
		}
		return models.CachedResult{}, false, fmt.Errorf("%w: get %s: %w", ErrTierUnavailable, key, err)
	}

	var entry models.CachedResult
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.CachedResult{}, false, fmt.Errorf("decode result %s: %w", key, err)
	}
	if entry.Expired(t.now()) {
		return models.CachedResult{}, false, nil
	}
	return entry, true, nil
}

// Set stores entry until its expiry and records it in both users' indexes.
func (t *RedisTier) Set(ctx context.Context, entry models.CachedResult) error {
	key := KeyOf(entry)
	ttl := entry.ExpiresAt.Sub(t.now())
	if ttl < time.Second {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", key, err)
	}

	rk := resultKey(key)
	cmds := rueidis.Commands{
		t.client.B().Set().Key(rk).Value(rueidis.BinaryString(data)).Ex(ttl).Build(),
	}
	for _, userID := range []models.UserID{key.Viewer, key.Target} {
		ik := userIndexKey(userID)
		cmds = append(cmds,
			t.client.B().Sadd().Key(ik).Member(rk).Build(),
			t.client.B().Expire().Key(ik).Seconds(int64(indexTTL/time.Second)).Build(),
		)
	}

	for _, resp := range t.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("%w: set %s: %w", ErrTierUnavailable, key, err)
		}
	}
	return nil
}

// InvalidateUser deletes every result indexed under userID, then the index itself.
func (t *RedisTier) InvalidateUser(ctx context.Context, userID models.UserID) (int, error) {
	ik := userIndexKey(userID)
	keys, err := t.client.Do(ctx, t.client.B().Smembers().Key(ik).Build()).AsStrSlice()
	if err != nil {
		return 0, fmt.Errorf("%w: read index for user %d: %w", ErrTierUnavailable, userID, err)
	}

	removed, err := t.deleteKeys(ctx, keys)
	if err != nil {
		return int(removed), fmt.Errorf("%w: invalidate user %d: %w", ErrTierUnavailable, userID, err)
	}
	if err := t.client.Do(ctx, t.client.B().Del().Key(ik).Build()).Error(); err != nil {
		return int(removed), fmt.Errorf("%w: drop index for user %d: %w", ErrTierUnavailable, userID, err)
	}
	return int(removed), nil
}

// deleteKeys removes keys with one DEL each. Result keys live in different
// hash slots, so a single multi-key DEL is not allowed.
func (t *RedisTier) deleteKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, t.client.B().Del().Key(key).Build())
	}

	var removed int64
	for _, resp := range t.client.DoMulti(ctx, cmds...) {
		n, err := resp.AsInt64()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// Clear removes every result and index key.
func (t *RedisTier) Clear(ctx context.Context) error {
	for _, prefix := range []string{ResultKeyPrefix, UserIndexPrefix} {
		if err := t.deletePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (t *RedisTier) deletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		entry, err := t.client.Do(ctx, t.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return fmt.Errorf("%w: scan %s: %w", ErrTierUnavailable, prefix, err)
		}
		if _, err := t.deleteKeys(ctx, entry.Elements); err != nil {
			return fmt.Errorf("%w: clear %s: %w", ErrTierUnavailable, prefix, err)
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

var _ Tier = (*RedisTier)(nil)
