package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/waari-travel/waari-erp/internal/auth"
	"github.com/waari-travel/waari-erp/internal/platform/token"
	"github.com/waari-travel/waari-erp/internal/shared"
	_ "github.com/waari-travel/waari-erp/testing"
)

type stubRepo struct {
	mu     sync.Mutex
	users  map[string]auth.Credential
	tokens map[int64]string
	resets int
}

func newStubRepo(t *testing.T, creds ...auth.Credential) *stubRepo {
	t.Helper()
	r := &stubRepo{users: map[string]auth.Credential{}, tokens: map[int64]string{}}
	for _, c := range creds {
		r.users[c.Email] = c
	}
	return r
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[email]
	if !ok {
		return auth.Credential{}, shared.ErrNotFound
	}
	return c, nil
}

func (s *stubRepo) SetToken(_ context.Context, userID int64, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = tok
	return nil
}

func (s *stubRepo) ResetPassword(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	for email, c := range s.users {
		if c.UserID == userID {
			c.PasswordHash = hash
			s.users[email] = c
		}
	}
	s.tokens[userID] = ""
	return nil
}

func (s *stubRepo) token(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID]
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingMailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *recordingMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type fixture struct {
	svc    *auth.Service
	repo   *stubRepo
	mailer *recordingMailer
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T, issuer auth.TokenIssuer) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo(t,
		auth.Credential{UserID: 7, RoleID: 3, ClientCode: "WAARI", Email: "asha@waari.test", PasswordHash: hashPassword(t, "correct-horse"), Active: true},
		auth.Credential{UserID: 8, RoleID: 3, Email: "off@waari.test", PasswordHash: hashPassword(t, "correct-horse"), Active: false},
	)
	mailer := &recordingMailer{}
	svc := auth.NewService(repo, issuer, auth.NewOTPStore(client, 10*time.Minute, 3), mailer, nil, nil)
	return fixture{svc: svc, repo: repo, mailer: mailer, redis: mr}
}

func TestLoginRotatesOpaqueToken(t *testing.T) {
	f := newFixture(t, auth.OpaqueIssuer{})

	first, err := f.svc.Login(context.Background(), " Asha@Waari.test ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.UserID)
	assert.Equal(t, int64(3), first.RoleID)
	assert.Equal(t, first.Token, f.repo.token(7))

	second, err := f.svc.Login(context.Background(), "asha@waari.test", "correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, second.Token, f.repo.token(7))
}

func TestLoginJWTStoresJTI(t *testing.T) {
	codec := token.NewJWTCodec("secret", time.Hour)
	f := newFixture(t, auth.JWTIssuer{Codec: codec})

	result, err := f.svc.Login(context.Background(), "asha@waari.test", "correct-horse")
	require.NoError(t, err)

	claims, err := codec.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, f.repo.token(7))
	assert.Equal(t, "WAARI", claims.ClientCode)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Login(context.Background(), "asha@waari.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "ghost@waari.test", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "off@waari.test", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInactive)
	assert.Empty(t, f.repo.token(8))
}

func TestLogoutClearsToken(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Login(context.Background(), "asha@waari.test", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), shared.Principal{UserID: 7}))
	assert.Empty(t, f.repo.token(7))
}

func TestForgetPasswordSendsSixDigitCode(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), f.mailer.code("asha@waari.test"))
	assert.Equal(t, 10*time.Minute, f.redis.TTL("waari:otp:asha@waari.test"))

	err := f.svc.ForgetPassword(context.Background(), "ghost@waari.test")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerifyOTPKeepsCodeForReset(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	require.NoError(t, f.svc.VerifyOTP(context.Background(), "asha@waari.test", code))
	require.NoError(t, f.svc.ResetPassword(context.Background(), "asha@waari.test", code, "battery-staple"))

	err := f.svc.VerifyOTP(context.Background(), "asha@waari.test", code)
	assert.ErrorIs(t, err, auth.ErrOTPExpired)
}

func TestVerifyOTPAttemptBudget(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	for i := 0; i < 3; i++ {
		err := f.svc.VerifyOTP(context.Background(), "asha@waari.test", "000000")
		require.ErrorIs(t, err, auth.ErrOTPMismatch)
	}
	err := f.svc.VerifyOTP(context.Background(), "asha@waari.test", code)
	assert.ErrorIs(t, err, auth.ErrOTPAttempts)
	assert.ErrorIs(t, err, shared.ErrTooManyRequests)
}

func TestVerifyOTPExpires(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	f.redis.FastForward(11 * time.Minute)

	err := f.svc.VerifyOTP(context.Background(), "asha@waari.test", code)
	assert.ErrorIs(t, err, auth.ErrOTPExpired)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Login(context.Background(), "asha@waari.test", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	err = f.svc.ResetPassword(context.Background(), "asha@waari.test", code, "correct-horse")
	require.ErrorIs(t, err, auth.ErrSamePassword)

	require.NoError(t, f.svc.ResetPassword(context.Background(), "asha@waari.test", code, "battery-staple"))
	assert.Empty(t, f.repo.token(7))
	assert.False(t, f.redis.Exists("waari:otp:asha@waari.test"))

	_, err = f.svc.Login(context.Background(), "asha@waari.test", "battery-staple")
	assert.NoError(t, err)
}

func TestResetPasswordRedeemsCodeOnce(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(context.Background(), "asha@waari.test", code, "battery-staple")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, auth.ErrOTPExpired)
	}
	assert.Equal(t, 1, ok)
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	assert.Equal(t, 1, f.repo.resets)
}

func TestResetPasswordSamePasswordKeepsCode(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.ForgetPassword(context.Background(), "asha@waari.test"))
	code := f.mailer.code("asha@waari.test")

	err := f.svc.ResetPassword(context.Background(), "asha@waari.test", code, "correct-horse")
	require.ErrorIs(t, err, auth.ErrSamePassword)
	assert.True(t, f.redis.Exists("waari:otp:asha@waari.test"))
}
