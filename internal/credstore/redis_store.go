package credstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"classfeed/pkg/domain"
)

const (
	redisTokenKey = "classfeed:token"
	redisUserKey  = "classfeed:user"
)

// RedisStore keeps the token and serialized profile in Redis, for deployments
// where the client runs on a shared machine with a local Redis. Both entries
// are written in one pipeline and deleted in one call so the pair stays
// consistent.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed credential store.
func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (s *RedisStore) Save(session domain.Session) error {
	if !session.Valid() {
		return errPartialSession
	}
	userData, err := json.Marshal(session.User)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext()
	defer cancel()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisTokenKey, session.Token, 0)
	pipe.Set(ctx, redisUserKey, userData, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load() (domain.Session, bool, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	values, err := s.client.MGet(ctx, redisTokenKey, redisUserKey).Result()
	if err != nil {
		return domain.Session{}, false, err
	}
	token, tokenOK := values[0].(string)
	userData, userOK := values[1].(string)
	if !tokenOK || !userOK || token == "" {
		// Partial pair (token without user or the reverse): drop both.
		if tokenOK || userOK {
			if err := s.Clear(); err != nil {
				return domain.Session{}, false, err
			}
		}
		return domain.Session{}, false, nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil || user.ID == "" {
		if clearErr := s.Clear(); clearErr != nil {
			return domain.Session{}, false, clearErr
		}
		return domain.Session{}, false, nil
	}
	return domain.Session{Token: token, User: user}, true, nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Del(ctx, redisTokenKey, redisUserKey).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}
