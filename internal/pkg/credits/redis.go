package credits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
)

const (
	scriptStatusOK           int64 = 0
	scriptStatusNotFound     int64 = 1
	scriptStatusInsufficient int64 = 2
	scriptStatusDuplicate    int64 = 3
	scriptStatusExists       int64 = 4
)

const createAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return {4, 0}
end
redis.call("HSET", KEYS[1], "subject", ARGV[1], "email", ARGV[2], "credits", ARGV[3])
return {0, tonumber(ARGV[3])}
`

const decrementScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {1, 0}
end
return {0, redis.call("HINCRBY", KEYS[1], "credits", -tonumber(ARGV[1]))}
`

const decrementIfSufficientScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {1, 0}
end
local balance = tonumber(redis.call("HGET", KEYS[1], "credits") or "0")
local amount = tonumber(ARGV[1])
if balance < amount then
  return {2, balance}
end
return {0, redis.call("HINCRBY", KEYS[1], "credits", -amount)}
`

const incrementIfExistsScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {1, 0}
end
if ARGV[2] ~= "" then
  if redis.call("SADD", KEYS[2], ARGV[2]) == 0 then
    return {3, tonumber(redis.call("HGET", KEYS[1], "credits") or "0")}
  end
end
return {0, redis.call("HINCRBY", KEYS[1], "credits", tonumber(ARGV[1]))}
`

var (
	createAccountLua         = redis.NewScript(createAccountScript)
	decrementLua             = redis.NewScript(decrementScript)
	decrementIfSufficientLua = redis.NewScript(decrementIfSufficientScript)
	incrementIfExistsLua     = redis.NewScript(incrementIfExistsScript)
)

// RedisStore keeps balances in Redis hashes. Each mutation runs as one Lua
// script so the existence/balance check and the write cannot interleave with
// another request.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using prefix for all keys ("credits" when empty).
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "credits"
	}
	return &RedisStore{redis: rdb, prefix: prefix}
}

// Keys for one subject share a hash tag so the scripts also work on a cluster.
func (s *RedisStore) accountKey(subject string) string {
	return fmt.Sprintf("%s:{%s}:account", s.prefix, subject)
}

func (s *RedisStore) fulfilledKey(subject string) string {
	return fmt.Sprintf("%s:{%s}:fulfilled", s.prefix, subject)
}

func (s *RedisStore) Get(ctx context.Context, subject string) (Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(subject)).Result()
	if err != nil {
		return Account{}, apierror.Upstream(apierror.Store, err)
	}
	if len(fields) == 0 {
		return Account{}, ErrAccountNotFound
	}
	balance, err := strconv.ParseInt(fields["credits"], 10, 64)
	if err != nil {
		return Account{}, apierror.Upstream(apierror.Store, fmt.Errorf("corrupt credits value for %s: %w", subject, err))
	}
	return Account{Subject: subject, Email: fields["email"], Credits: balance}, nil
}

func (s *RedisStore) Create(ctx context.Context, account Account) error {
	if strings.TrimSpace(account.Subject) == "" {
		return ErrInvalidSubject
	}
	code, _, err := s.run(ctx, createAccountLua, []string{s.accountKey(account.Subject)},
		account.Subject, account.Email, account.Credits)
	if err != nil {
		return err
	}
	if code == scriptStatusExists {
		return ErrAccountExists
	}
	return nil
}

func (s *RedisStore) Decrement(ctx context.Context, subject string, amount int64) error {
	if err := checkArgs(subject, amount); err != nil {
		return err
	}
	code, _, err := s.run(ctx, decrementLua, []string{s.accountKey(subject)}, amount)
	if err != nil {
		return err
	}
	return statusError(code)
}

func (s *RedisStore) DecrementIfSufficient(ctx context.Context, subject string, amount int64) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	code, balance, err := s.run(ctx, decrementIfSufficientLua, []string{s.accountKey(subject)}, amount)
	if err != nil {
		return 0, err
	}
	return balance, statusError(code)
}

func (s *RedisStore) IncrementIfExists(ctx context.Context, subject string, amount int64, fulfillmentID string) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	keys := []string{s.accountKey(subject), s.fulfilledKey(subject)}
	code, balance, err := s.run(ctx, incrementIfExistsLua, keys, amount, fulfillmentID)
	if err != nil {
		return 0, err
	}
	return balance, statusError(code)
}

func (s *RedisStore) run(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (int64, int64, error) {
	result, err := script.Run(ctx, s.redis, keys, args...).Result()
	if err != nil {
		return 0, 0, apierror.Upstream(apierror.Store, err)
	}
	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return 0, 0, apierror.Upstream(apierror.Store, errors.New("invalid credits script response"))
	}
	code, ok := parts[0].(int64)
	if !ok {
		return 0, 0, apierror.Upstream(apierror.Store, errors.New("invalid credits script status"))
	}
	balance, ok := parts[1].(int64)
	if !ok {
		return 0, 0, apierror.Upstream(apierror.Store, errors.New("invalid credits script balance"))
	}
	return code, balance, nil
}

func statusError(code int64) error {
	switch code {
	case scriptStatusOK:
		return nil
	case scriptStatusNotFound:
		return ErrAccountNotFound
	case scriptStatusInsufficient:
		return ErrInsufficientBalance
	case scriptStatusDuplicate:
		return ErrAlreadyFulfilled
	case scriptStatusExists:
		return ErrAccountExists
	default:
		return apierror.Upstream(apierror.Store, fmt.Errorf("unknown credits script status %d", code))
	}
}
