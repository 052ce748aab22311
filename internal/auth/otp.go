package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix       = "waari:otp:"
	defaultOTPTTL      = 10 * time.Minute
	defaultOTPAttempts = 3
)

// OTPStore keeps one-time password reset codes in Redis. Each email holds a
// single hash with the code and the failed attempt count; the key expires
// after the TTL.
type OTPStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxAttempts int
}

// NewOTPStore constructs an OTPStore. Zero values fall back to ten minutes
// and three attempts.
func NewOTPStore(client *redis.Client, ttl time.Duration, maxAttempts int) *OTPStore {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOTPAttempts
	}
	return &OTPStore{client: client, ttl: ttl, maxAttempts: maxAttempts}
}

// Issue generates a fresh six digit code for email, replacing any previous
// one and resetting the attempt count.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	code := strconv.FormatInt(n.Int64()+100000, 10)
	key := otpKey(email)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "attempts", 0)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: store otp: %w", err)
	}
	return code, nil
}

// otpScript checks ARGV[1] against the stored code in one step. ARGV[2] is
// the attempt limit; ARGV[3] = "1" deletes the key on a match.
var otpScript = redis.NewScript(`
local code = redis.call("HGET", KEYS[1], "code")
if not code then
	return 1
end
local attempts = tonumber(redis.call("HGET", KEYS[1], "attempts") or "0")
if attempts >= tonumber(ARGV[2]) then
	return 2
end
if code == ARGV[1] then
	if ARGV[3] == "1" then
		redis.call("DEL", KEYS[1])
	end
	return 0
end
redis.call("HINCRBY", KEYS[1], "attempts", 1)
return 3
`)

// Check validates code without consuming it. A wrong code spends one attempt.
func (s *OTPStore) Check(ctx context.Context, email, code string) error {
	return s.run(ctx, email, code, false)
}

// Consume validates code and deletes it on a match, so only one caller can
// redeem a code.
func (s *OTPStore) Consume(ctx context.Context, email, code string) error {
	return s.run(ctx, email, code, true)
}

func (s *OTPStore) run(ctx context.Context, email, code string, consume bool) error {
	flag := "0"
	if consume {
		flag = "1"
	}
	res, err := otpScript.Run(ctx, s.client, []string{otpKey(email)}, strings.TrimSpace(code), s.maxAttempts, flag).Int()
	if err != nil {
		return fmt.Errorf("auth: check otp: %w", err)
	}
	switch res {
	case 0:
		return nil
	case 1:
		return ErrOTPExpired
	case 2:
		return ErrOTPAttempts
	default:
		return ErrOTPMismatch
	}
}

func otpKey(email string) string {
	return otpKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}
