package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedKeyPrefix is the key prefix for per-user feed caches
	FeedKeyPrefix = "feed:user:"

	// FeedCap is the maximum number of posts kept per user
	FeedCap = 500

	// FeedTTL is how long an untouched feed cache survives
	FeedTTL = 7 * 24 * time.Hour
)

// PostScore pairs a post with its timestamp score for the sorted set.
type PostScore struct {
	PostID    int64
	Timestamp int64 // Unix seconds
}

// FeedCache is the per-user timeline cache. Backed by Redis sorted sets
// keyed on post timestamp; an interface so tests can swap in a fake.
type FeedCache interface {
	// AddPost inserts one post into a user's feed, trimming to FeedCap and
	// refreshing the TTL.
	AddPost(ctx context.Context, userID, postID int64, timestamp int64) error

	// RemovePost drops one post from a user's feed.
	RemovePost(ctx context.Context, userID, postID int64) error

	// GetFeed returns post IDs newest first. A nil cursorScore starts from
	// the top; otherwise only posts strictly older than the cursor come back.
	GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) (postIDs []int64, scores []float64, err error)

	// WarmCache bulk-loads posts into a user's feed.
	WarmCache(ctx context.Context, userID int64, posts []PostScore) error

	// Exists reports whether the user has a cache entry at all. False means
	// new user or expired TTL; the service warms the cache then.
	Exists(ctx context.Context, userID int64) (bool, error)

	// GetScore returns the timestamp score of one post in a user's feed,
	// with found=false when the post is not cached.
	GetScore(ctx context.Context, userID, postID int64) (score int64, found bool, err error)

	// Size returns the number of posts in a user's feed cache.
	Size(ctx context.Context, userID int64) (int64, error)
}

// RedisFeedCache implements FeedCache on Redis ZSETs.
type RedisFeedCache struct {
	client *redis.Client
}

func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedKeyPrefix, userID)
}

// AddPost pipelines ZADD + ZREMRANGEBYRANK (cap) + EXPIRE (TTL refresh).
func (c *RedisFeedCache) AddPost(ctx context.Context, userID, postID int64, timestamp int64) error {
	key := feedKey(userID)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(postID, 10),
	})
	// Keep the FeedCap highest scores, drop the oldest beyond that.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCap-1))
	pipe.Expire(ctx, key, FeedTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] AddPost FAILED: user=%d post=%d err=%v", userID, postID, err)
		return fmt.Errorf("add post to feed: %w", err)
	}
	return nil
}

func (c *RedisFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	key := feedKey(userID)
	member := strconv.FormatInt(postID, 10)

	if err := c.client.ZRem(ctx, key, member).Err(); err != nil {
		log.Printf("[FeedCache] RemovePost FAILED: user=%d post=%d err=%v", userID, postID, err)
		return fmt.Errorf("remove post from feed: %w", err)
	}
	return nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	key := feedKey(userID)

	var results []redis.Z
	var err error

	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		// "(" makes the upper bound exclusive so the cursor post itself is
		// not returned again.
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("(%f", *cursorScore),
			Offset: 0,
			Count:  int64(limit),
		}).Result()
	}

	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%d err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedTTL)

	postIDs := make([]int64, len(results))
	scores := make([]float64, len(results))
	for i, z := range results {
		id, err := strconv.ParseInt(z.Member.(string), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parse post id: %w", err)
		}
		postIDs[i] = id
		scores[i] = z.Score
	}

	return postIDs, scores, nil
}

func (c *RedisFeedCache) WarmCache(ctx context.Context, userID int64, posts []PostScore) error {
	if len(posts) == 0 {
		return nil
	}

	key := feedKey(userID)

	members := make([]redis.Z, len(posts))
	for i, p := range posts {
		members[i] = redis.Z{
			Score:  float64(p.Timestamp),
			Member: strconv.FormatInt(p.PostID, 10),
		}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCap-1))
	pipe.Expire(ctx, key, FeedTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%d posts=%d err=%v", userID, len(posts), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%d posts=%d", userID, len(posts))
	return nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return exists > 0, nil
}

func (c *RedisFeedCache) GetScore(ctx context.Context, userID, postID int64) (int64, bool, error) {
	score, err := c.client.ZScore(ctx, feedKey(userID), strconv.FormatInt(postID, 10)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get score: %w", err)
	}
	return int64(score), true, nil
}

func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get feed size: %w", err)
	}
	return size, nil
}
