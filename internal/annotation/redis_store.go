package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coach:video:"

// RedisStore keeps video records in Redis with a TTL, so they live only as long as an upload does.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// storedVideo carries the fields Video hides from the API.
type storedVideo struct {
	*Video
	Path string `json:"path"`
}

// ConnectRedis dials addr and verifies the connection.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore returns a store on client. ttl <= 0 keeps records until deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func videoKey(id VideoID) string {
	return redisKeyPrefix + string(id)
}

// GetVideo implements Store.GetVideo.
func (s *RedisStore) GetVideo(ctx context.Context, id VideoID) (*Video, bool, error) {
	data, err := s.client.Get(ctx, videoKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading video %s: %w", id, err)
	}

	sv := storedVideo{Video: &Video{}}
	if err := json.Unmarshal(data, &sv); err != nil {
		return nil, false, fmt.Errorf("decode video %s: %w", id, err)
	}
	sv.Video.Path = sv.Path
	return sv.Video, true, nil
}

// SetVideo implements Store.SetVideo.
func (s *RedisStore) SetVideo(ctx context.Context, v *Video) error {
	data, err := json.Marshal(storedVideo{Video: v, Path: v.Path})
	if err != nil {
		return fmt.Errorf("failed to marshal video to JSON: %w", err)
	}
	if err := s.client.Set(ctx, videoKey(v.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("error writing video %s: %w", v.ID, err)
	}
	return nil
}

// DeleteVideo implements Store.DeleteVideo.
func (s *RedisStore) DeleteVideo(ctx context.Context, id VideoID) error {
	if err := s.client.Del(ctx, videoKey(id)).Err(); err != nil {
		return fmt.Errorf("error deleting video %s: %w", id, err)
	}
	return nil
}

// ListVideoIDs implements Store.ListVideoIDs.
func (s *RedisStore) ListVideoIDs(ctx context.Context) ([]VideoID, error) {
	var ids []VideoID
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, VideoID(strings.TrimPrefix(iter.Val(), redisKeyPrefix)))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning videos: %w", err)
	}
	return ids, nil
}
