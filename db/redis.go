package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/evergreen-ci/speedtracker/model"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configure a RedisDatabase.
type RedisOptions struct {
	URL    string
	Prefix string
}

// Validate checks the options and fills in defaults.
func (opts *RedisOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.URL == "", "must specify a redis url")
	if opts.Prefix == "" {
		opts.Prefix = "speedtracker"
	}
	return catcher.Resolve()
}

// RedisDatabase stores the results of each profile in a sorted set scored
// by the result timestamp. A hash per profile maps each result id to its
// sorted set member so a repeated id replaces the stored result.
type RedisDatabase struct {
	opts   RedisOptions
	conn   refCount
	client *redis.Client
}

// NewRedisDatabase returns an unconnected RedisDatabase.
func NewRedisDatabase(opts RedisOptions) (*RedisDatabase, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid redis options")
	}
	if _, err := redis.ParseURL(opts.URL); err != nil {
		return nil, errors.Wrapf(err, "invalid redis url")
	}

	return &RedisDatabase{opts: opts}, nil
}

func (r *RedisDatabase) key(collection string) string {
	return fmt.Sprintf("%s:results:%s", r.opts.Prefix, collection)
}

func (r *RedisDatabase) idsKey(collection string) string {
	return fmt.Sprintf("%s:ids:%s", r.opts.Prefix, collection)
}

func (r *RedisDatabase) Connect(ctx context.Context) error {
	return r.conn.acquire(func() error {
		opts, err := redis.ParseURL(r.opts.URL)
		if err != nil {
			return errors.Wrap(err, "problem parsing redis url")
		}

		client := redis.NewClient(opts)
		if err = client.Ping(ctx).Err(); err != nil {
			grip.Warning(message.WrapError(client.Close(), message.Fields{
				"message": "problem closing client after failed ping",
			}))
			return errors.Wrap(err, "problem connecting to redis")
		}

		r.client = client
		return nil
	})
}

func (r *RedisDatabase) Disconnect(_ context.Context) error {
	return r.conn.release(func() error {
		client := r.client
		r.client = nil
		return errors.Wrap(client.Close(), "problem closing redis client")
	})
}

func (r *RedisDatabase) getClient() (*redis.Client, error) {
	if !r.conn.isOpen() || r.client == nil {
		return nil, errors.New("redis is not connected")
	}
	return r.client, nil
}

func (r *RedisDatabase) Insert(ctx context.Context, opts model.InsertOptions) error {
	client, err := r.getClient()
	if err != nil {
		return errors.WithStack(err)
	}

	key, idsKey := r.key(opts.Collection), r.idsKey(opts.Collection)
	for _, result := range opts.Results {
		payload, err := json.Marshal(result)
		if err != nil {
			return errors.Wrapf(err, "problem encoding result '%s'", result.ID)
		}

		prev, err := client.HGet(ctx, idsKey, result.ID).Result()
		if err != nil && err != redis.Nil {
			return errors.Wrapf(err, "problem finding result '%s' in '%s'", result.ID, opts.Collection)
		}

		_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev != "" {
				pipe.ZRem(ctx, key, prev)
			}
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(result.Timestamp), Member: string(payload)})
			pipe.HSet(ctx, idsKey, result.ID, string(payload))
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "problem storing result '%s' in '%s'", result.ID, opts.Collection)
		}
	}

	return nil
}

func (r *RedisDatabase) Get(ctx context.Context, opts model.GetOptions) ([]model.ResultRecord, error) {
	client, err := r.getClient()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if opts.TimestampFrom != nil {
		rng.Min = strconv.FormatInt(*opts.TimestampFrom, 10)
	}
	if opts.TimestampTo != nil {
		rng.Max = strconv.FormatInt(*opts.TimestampTo, 10)
	}

	payloads, err := client.ZRangeByScore(ctx, r.key(opts.Collection), rng).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "problem finding results in '%s'", opts.Collection)
	}

	out := make([]model.ResultRecord, 0, len(payloads))
	for _, payload := range payloads {
		result := model.ResultRecord{}
		if err = json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, errors.Wrapf(err, "problem decoding result from '%s'", opts.Collection)
		}
		out = append(out, result)
	}

	return out, nil
}
