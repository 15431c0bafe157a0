package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists account snapshots in Redis. Each account is a JSON
// blob under an uid-derived key; the signed-in pointer and format version are
// plain keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "fxa"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) accountKey(uid string) string {
	return fmt.Sprintf("%s:account:%s", s.prefix, uid)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":accounts"
}

func (s *RedisStore) signedInKey() string {
	return s.prefix + ":signed_in"
}

func (s *RedisStore) formatKey() string {
	return s.prefix + ":format_version"
}

func (s *RedisStore) GetAccount(ctx context.Context, uid string) (*AccountSnapshot, error) {
	data, err := s.client.Get(ctx, s.accountKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting account %s: %w", uid, err)
	}

	var account AccountSnapshot
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", uid, err)
	}
	return &account, nil
}

func (s *RedisStore) SetAccount(ctx context.Context, account *AccountSnapshot) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", account.UID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accountKey(account.UID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), account.UID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing account %s: %w", account.UID, err)
	}
	return nil
}

func (s *RedisStore) DeleteAccount(ctx context.Context, uid string) error {
	signedIn, err := s.client.Get(ctx, s.signedInKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reading signed-in pointer: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.accountKey(uid))
	pipe.SRem(ctx, s.indexKey(), uid)
	if signedIn == uid {
		pipe.Del(ctx, s.signedInKey())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting account %s: %w", uid, err)
	}
	return nil
}

func (s *RedisStore) ListAccounts(ctx context.Context) ([]*AccountSnapshot, error) {
	uids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	accounts := make([]*AccountSnapshot, 0, len(uids))
	for _, uid := range uids {
		account, err := s.GetAccount(ctx, uid)
		if errors.Is(err, ErrAccountNotFound) {
			// Index entry outlived the account blob; drop it.
			s.client.SRem(ctx, s.indexKey(), uid)
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *RedisStore) SignedInUID(ctx context.Context) (string, error) {
	uid, err := s.client.Get(ctx, s.signedInKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotSignedIn
	}
	if err != nil {
		return "", fmt.Errorf("reading signed-in pointer: %w", err)
	}
	return uid, nil
}

func (s *RedisStore) SetSignedInUID(ctx context.Context, uid string) error {
	exists, err := s.client.Exists(ctx, s.accountKey(uid)).Result()
	if err != nil {
		return fmt.Errorf("checking account %s: %w", uid, err)
	}
	if exists == 0 {
		return ErrAccountNotFound
	}
	if err := s.client.Set(ctx, s.signedInKey(), uid, 0).Err(); err != nil {
		return fmt.Errorf("setting signed-in pointer: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearSignedInUID(ctx context.Context) error {
	if err := s.client.Del(ctx, s.signedInKey()).Err(); err != nil {
		return fmt.Errorf("clearing signed-in pointer: %w", err)
	}
	return nil
}

func (s *RedisStore) FormatVersion(ctx context.Context) (int, error) {
	raw, err := s.client.Get(ctx, s.formatKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading format version: %w", err)
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing format version %q: %w", raw, err)
	}
	return version, nil
}

func (s *RedisStore) SetFormatVersion(ctx context.Context, version int) error {
	if err := s.client.Set(ctx, s.formatKey(), strconv.Itoa(version), 0).Err(); err != nil {
		return fmt.Errorf("storing format version: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
