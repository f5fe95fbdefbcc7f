package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pinyinhub/db"
	"pinyinhub/model"
)

// 缓存TTL：列表数据短缓存，避免翻页请求反复打到MySQL
const (
	songListTTL = 60 * time.Second
	artistsTTL  = 5 * time.Minute
)

func songListKey(limit, offset int) string {
	return fmt.Sprintf("songs:page:%d:%d", limit, offset)
}

const artistsKey = "artists:stats"

// GetCachedSongList returns the cached page of songs, or (nil, nil) on a
// cache miss. Cache errors are returned for the caller to log; they are
// never fatal.
func GetCachedSongList(ctx context.Context, limit, offset int) ([]*model.Song, error) {
	if db.RedisClient == nil {
		return nil, nil
	}
	data, err := db.RedisClient.Get(ctx, songListKey(limit, offset)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read song list cache: %w", err)
	}
	var songs []*model.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("failed to decode song list cache: %w", err)
	}
	return songs, nil
}

// CacheSongList stores one page of songs.
func CacheSongList(ctx context.Context, limit, offset int, songs []*model.Song) error {
	if db.RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(songs)
	if err != nil {
		return fmt.Errorf("failed to encode song list cache: %w", err)
	}
	return db.RedisClient.Set(ctx, songListKey(limit, offset), data, songListTTL).Err()
}

// GetCachedArtists returns the cached artist aggregation, or (nil, nil)
// on a cache miss.
func GetCachedArtists(ctx context.Context) ([]*model.ArtistStat, error) {
	if db.RedisClient == nil {
		return nil, nil
	}
	data, err := db.RedisClient.Get(ctx, artistsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read artists cache: %w", err)
	}
	var stats []*model.ArtistStat
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode artists cache: %w", err)
	}
	return stats, nil
}

// CacheArtists stores the artist aggregation.
func CacheArtists(ctx context.Context, stats []*model.ArtistStat) error {
	if db.RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode artists cache: %w", err)
	}
	return db.RedisClient.Set(ctx, artistsKey, data, artistsTTL).Err()
}

// InvalidateSongCaches drops every cached song page and the artist
// aggregation. Called after any write to the songs table.
func InvalidateSongCaches(ctx context.Context) error {
	if db.RedisClient == nil {
		return nil
	}
	iter := db.RedisClient.Scan(ctx, 0, "songs:page:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := db.RedisClient.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate song page cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan song page cache keys: %w", err)
	}
	return db.RedisClient.Del(ctx, artistsKey).Err()
}
