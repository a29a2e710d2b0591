package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"

	"plaid.dev/conllu/utils"
)

type DB int
type ReleaseLock func() error

// ErrNotFound is returned when no record is stored under the key.
var ErrNotFound = errors.New("redis record not found")

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"CONLLU_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"CONLLU_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"CONLLU_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"CONLLU_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"CONLLU_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"CONLLU_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"CONLLU_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"CONLLU_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"CONLLU_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(float64(cfg.HASentinelSocketTimeout) * float64(time.Second))
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

func (client *Client) getRaw(redisKey string) ([]byte, error) {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, redisKey)
	}
	return b, err
}

// GetPartialDocument decodes the JSON record under redisKey into doc. Fields
// doc does not declare are ignored.
func (client *Client) GetPartialDocument(redisKey string, doc interface{}) error {
	b, err := client.getRaw(redisKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return fmt.Errorf("failed to decode %s: %w", redisKey, err)
	}
	return nil
}

// UpdatePartialDocument loads the record into doc under a lock, runs updateFunc
// and writes back only what updateFunc changed. Fields owned by other services
// are kept as stored.
func (client *Client) UpdatePartialDocument(redisKey string, doc interface{}, updateFunc func()) (err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	return client.MergeDocument(redisKey, doc, updateFunc)
}

// MergeDocument is UpdatePartialDocument without the lock, for callers that
// already hold it.
func (client *Client) MergeDocument(redisKey string, doc interface{}, updateFunc func()) error {
	raw, err := client.getRaw(redisKey)
	if err != nil {
		return err
	}
	updated, err := MergeUpdate(raw, doc, updateFunc)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", redisKey, err)
	}
	return client.set(redisKey, updated)
}

// MergeUpdate decodes raw into doc, applies updateFunc and merges the resulting
// difference into raw as a JSON merge patch (RFC 7386).
func MergeUpdate(raw []byte, doc interface{}, updateFunc func()) (merged []byte, err error) {
	defer utils.RecoverWithError(&err)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	before, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if updateFunc != nil {
		updateFunc()
	}
	after, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, err
	}
	return jsonpatch.MergePatch(raw, patch)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) SaveDoc(redisKey string, document interface{}) error {
	b, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return client.set(redisKey, b)
}

func (client *Client) set(redisKey string, b []byte) error {
	return client.client.Set(ctx, redisKey, b, 0).Err()
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
