package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Ledger backed by one Redis hash per user. Credit changes run
// as Lua scripts, so checks and updates are atomic across processes.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ Ledger = (*Redis)(nil)

// NewRedis returns a ledger storing users under prefix + "user:" + id.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string {
	return r.prefix + "user:" + id
}

// Script results: the first element is a status code, the second the balance.
const (
	codeOK           = 0
	codeUnknown      = -1
	codeNotApproved  = -2
	codeInsufficient = -3
)

var deductScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {-1, 0} end
local credits = tonumber(redis.call('HGET', KEYS[1], 'credits')) or 0
if redis.call('HGET', KEYS[1], 'role') == 'admin' then return {0, credits} end
if redis.call('HGET', KEYS[1], 'status') ~= 'approved' then return {-2, credits} end
local n = tonumber(ARGV[1])
if credits < n then return {-3, credits} end
return {0, redis.call('HINCRBY', KEYS[1], 'credits', -n)}
`)

var grantScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {-1, 0} end
return {0, redis.call('HINCRBY', KEYS[1], 'credits', tonumber(ARGV[1]))}
`)

var statusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
return 0
`)

func (r *Redis) User(ctx context.Context, id string) (User, error) {
	vals, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return User{}, fmt.Errorf("ledger: load user: %w", err)
	}
	if len(vals) == 0 {
		return User{}, ErrUnknownUser
	}
	return decodeUser(id, vals)
}

func (r *Redis) Users(ctx context.Context) ([]User, error) {
	var users []User
	iter := r.client.Scan(ctx, 0, r.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), r.key(""))
		u, err := r.User(ctx, id)
		if errors.Is(err, ErrUnknownUser) {
			continue // removed during the scan
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("ledger: scan users: %w", err)
	}
	slices.SortFunc(users, func(a, b User) int { return strings.Compare(a.ID, b.ID) })
	return users, nil
}

func (r *Redis) Put(ctx context.Context, u User) error {
	if err := u.validate(); err != nil {
		return err
	}
	key := r.key(u.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			"email":      u.Email,
			"name":       u.Name,
			"role":       string(u.Role),
			"status":     string(u.Status),
			"credits":    u.Credits,
			"created_at": u.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger: store user: %w", err)
	}
	return nil
}

func (r *Redis) Deduct(ctx context.Context, id string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	res, err := deductScript.Run(ctx, r.client, []string{r.key(id)}, n).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("ledger: deduct: %w", err)
	}
	return scriptResult(res)
}

func (r *Redis) Grant(ctx context.Context, id string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	res, err := grantScript.Run(ctx, r.client, []string{r.key(id)}, n).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("ledger: grant: %w", err)
	}
	return scriptResult(res)
}

func (r *Redis) SetStatus(ctx context.Context, id string, s Status) error {
	if !s.Valid() {
		return ErrInvalidStatus
	}
	code, err := statusScript.Run(ctx, r.client, []string{r.key(id)}, string(s)).Int64()
	if err != nil {
		return fmt.Errorf("ledger: set status: %w", err)
	}
	if code == codeUnknown {
		return ErrUnknownUser
	}
	return nil
}

func scriptResult(res []int64) (int, error) {
	if len(res) != 2 {
		return 0, fmt.Errorf("ledger: unexpected script result %v", res)
	}
	balance := int(res[1])
	switch res[0] {
	case codeOK:
		return balance, nil
	case codeUnknown:
		return 0, ErrUnknownUser
	case codeNotApproved:
		return balance, ErrNotApproved
	case codeInsufficient:
		return balance, ErrInsufficientCredits
	default:
		return 0, fmt.Errorf("ledger: unexpected script code %d", res[0])
	}
}

func decodeUser(id string, vals map[string]string) (User, error) {
	u := User{
		ID:     id,
		Email:  vals["email"],
		Name:   vals["name"],
		Role:   Role(vals["role"]),
		Status: Status(vals["status"]),
	}
	if v := vals["credits"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return User{}, fmt.Errorf("ledger: user %s: bad credits %q: %w", id, v, err)
		}
		u.Credits = n
	}
	if v := vals["created_at"]; v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return User{}, fmt.Errorf("ledger: user %s: bad created_at %q: %w", id, v, err)
		}
		u.CreatedAt = ts
	}
	return u, nil
}
