package results

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/factory-arena/internal/arena"
)

// Key patterns for the Redis standings mirror.
func standingsKey(names [2]string) string   { return "arena:" + arena.PairingID(names) + ":standings" }
func resultsChannel(names [2]string) string { return "arena:" + arena.PairingID(names) + ":results" }

// RedisRecorder keeps a per-pairing standings hash up to date and publishes
// every outcome as JSON on the pairing's results channel.
type RedisRecorder struct {
	rdb *redis.Client
}

// NewRedisRecorder connects to the Redis server at redisURL.
func NewRedisRecorder(redisURL string) (*RedisRecorder, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisRecorder{rdb: rdb}, nil
}

// NewRedisRecorderFromClient wraps an existing redis.Client for use in tests.
func NewRedisRecorderFromClient(rdb *redis.Client) *RedisRecorder {
	return &RedisRecorder{rdb: rdb}
}

func (r *RedisRecorder) Record(ctx context.Context, o arena.Outcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	field := "draws"
	if o.Winner >= 0 {
		field = "wins_" + strconv.Itoa(o.Winner)
	}
	key := standingsKey(o.Names)

	pipe := r.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "games", 1)
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.Publish(ctx, resultsChannel(o.Names), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record: %w", err)
	}
	return nil
}

// Summary reads the standings hash of the pairing.
func (r *RedisRecorder) Summary(ctx context.Context, names [2]string) (Summary, error) {
	vals, err := r.rdb.HGetAll(ctx, standingsKey(names)).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("redis standings: %w", err)
	}
	atoi := func(k string) int {
		n, _ := strconv.Atoi(vals[k])
		return n
	}
	return Summary{
		Games: atoi("games"),
		Wins:  [2]int{atoi("wins_0"), atoi("wins_1")},
		Draws: atoi("draws"),
	}, nil
}

// Close closes the Redis connection.
func (r *RedisRecorder) Close() error {
	return r.rdb.Close()
}
