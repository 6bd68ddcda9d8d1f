package phone

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"multiauth/internal/challenge"
	"multiauth/internal/domain"
	"multiauth/internal/identity"
)

type fakeBackend struct {
	mu          sync.Mutex
	sent        []string
	tokens      []string
	redeemed    []string
	sessionSeq  int
	signIn      identity.PhoneSignIn
	signInErr   error
	account     identity.Account
	lookupErr   error
	exchangeRT  string
	exchangeErr error
	exchanges   int
}

func (f *fakeBackend) SendVerificationCode(_ context.Context, phoneNumber, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phoneNumber)
	f.tokens = append(f.tokens, token)
	f.sessionSeq++
	return "S" + strconv.Itoa(f.sessionSeq), nil
}

func (f *fakeBackend) SignInWithPhoneNumber(_ context.Context, sessionInfo, _ string) (identity.PhoneSignIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemed = append(f.redeemed, sessionInfo)
	return f.signIn, f.signInErr
}

func (f *fakeBackend) Lookup(context.Context, string) (identity.Account, bool, error) {
	if f.lookupErr != nil {
		return identity.Account{}, false, f.lookupErr
	}
	return f.account, f.account.LocalID != "", nil
}

func (f *fakeBackend) ExchangeIDToken(context.Context, string) (string, error) {
	f.mu.Lock()
	f.exchanges++
	f.mu.Unlock()
	return f.exchangeRT, f.exchangeErr
}

type fakeGate struct {
	outcome challenge.Outcome
	err     error
	calls   int
}

func (g *fakeGate) Obtain(context.Context, string, int64) (challenge.Outcome, error) {
	g.calls++
	return g.outcome, g.err
}

func newVerifier(b Backend, g Challenger) *Verifier {
	v := NewVerifier(nil, b, g, NewMemoryStore())
	v.now = func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) }
	return v
}

func TestRequestCode_TestModeSkipsChallenge(t *testing.T) {
	b := &fakeBackend{}
	g := &fakeGate{}
	v := newVerifier(b, g)

	ok, err := v.RequestCode(context.Background(), "", "+1 (234) 567-8900", 1000, true)
	if err != nil || !ok {
		t.Fatalf("request code: ok=%v err=%v", ok, err)
	}
	if g.calls != 0 {
		t.Fatalf("challenge must not run in test mode")
	}
	if b.sent[0] != "+12345678900" || b.tokens[0] != TestModeToken {
		t.Fatalf("unexpected dispatch: %v %v", b.sent, b.tokens)
	}
}

func TestRequestCode_UsesChallengeToken(t *testing.T) {
	b := &fakeBackend{}
	g := &fakeGate{outcome: challenge.Outcome{State: challenge.Verified, Token: "human"}}
	v := newVerifier(b, g)

	if _, err := v.RequestCode(context.Background(), "c1", "+12345678900", 1000, false); err != nil {
		t.Fatalf("request code: %v", err)
	}
	if b.tokens[0] != "human" {
		t.Fatalf("expected challenge token, got %v", b.tokens)
	}
}

func TestRequestCode_ChallengeNotVerified(t *testing.T) {
	for _, state := range []challenge.State{challenge.Rejected, challenge.Cancelled} {
		b := &fakeBackend{}
		v := newVerifier(b, &fakeGate{outcome: challenge.Outcome{State: state}})

		_, err := v.RequestCode(context.Background(), "", "+12345678900", 1000, false)
		if !errors.Is(err, domain.ErrChallengeFailed) {
			t.Fatalf("%s: expected challenge failure, got %v", state, err)
		}
		if len(b.sent) != 0 {
			t.Fatalf("%s: code must not be sent", state)
		}
	}
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	b := &fakeBackend{}
	v := newVerifier(b, &fakeGate{})
	if _, err := v.RequestCode(context.Background(), "", "12345", 1000, true); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(b.sent) != 0 {
		t.Fatalf("invalid phone must not reach the backend")
	}
}

func TestSecondRequestInvalidatesFirst(t *testing.T) {
	b := &fakeBackend{signIn: identity.PhoneSignIn{IDToken: "id", RefreshToken: "rt"}}
	v := newVerifier(b, nil)
	ctx := context.Background()

	if _, err := v.RequestCode(ctx, "", "+12345678900", 1000, true); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := v.RequestCode(ctx, "", "+12345678900", 1000, true); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if _, err := v.SubmitCode(ctx, "", "123456", 1000); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(b.redeemed) != 1 || b.redeemed[0] != "S2" {
		t.Fatalf("expected only the second session to be redeemed, got %v", b.redeemed)
	}
	if _, err := v.SubmitCode(ctx, "", "123456", 1000); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session after consume, got %v", err)
	}
}

func TestSubmitCode_NoSession(t *testing.T) {
	v := newVerifier(&fakeBackend{}, nil)
	if _, err := v.SubmitCode(context.Background(), "", "123456", 1000); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

func TestSubmitCode_BlankCode(t *testing.T) {
	v := newVerifier(&fakeBackend{}, nil)
	if _, err := v.SubmitCode(context.Background(), "", "  ", 1000); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitCode_ConsumedOnFailure(t *testing.T) {
	b := &fakeBackend{signInErr: &domain.ProviderError{Op: "signInWithPhoneNumber", Status: 400, Message: "INVALID_CODE"}}
	v := newVerifier(b, nil)
	ctx := context.Background()

	if _, err := v.RequestCode(ctx, "c1", "+12345678900", 1000, true); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := v.SubmitCode(ctx, "c1", "000000", 1000); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := v.SubmitCode(ctx, "c1", "000000", 1000); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected session cleared, got %v", err)
	}
}

func TestSubmitCode_Success(t *testing.T) {
	b := &fakeBackend{
		signIn:     identity.PhoneSignIn{IDToken: "id-1"},
		account:    identity.Account{LocalID: "p1", PhoneNumber: "+12345678900"},
		exchangeRT: "rt-x",
	}
	v := newVerifier(b, nil)
	ctx := context.Background()

	if _, err := v.RequestCode(ctx, "c1", "+12345678900", 1000, true); err != nil {
		t.Fatalf("request: %v", err)
	}
	res, err := v.SubmitCode(ctx, "c1", "123456", 1000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Success || res.UserData == nil || res.UserData.UserID != "p1" || res.UserData.Provider != domain.ProviderPhone {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Tokens.RefreshToken != "rt-x" || res.Tokens.ExpiresIn != "3600" {
		t.Fatalf("unexpected tokens: %+v", res.Tokens)
	}
	if !res.Tokens.TokenExpiry.Equal(time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %v", res.Tokens.TokenExpiry)
	}
}

func TestSubmitCode_LookupFailureTolerated(t *testing.T) {
	b := &fakeBackend{
		signIn:    identity.PhoneSignIn{IDToken: "id-1", RefreshToken: "rt-1"},
		lookupErr: errors.New("lookup down"),
	}
	v := newVerifier(b, nil)
	ctx := context.Background()

	_, _ = v.RequestCode(ctx, "", "+12345678900", 1000, true)
	res, err := v.SubmitCode(ctx, "", "123456", 1000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Success || res.UserData != nil {
		t.Fatalf("expected success without user data, got %+v", res)
	}
	if b.exchanges != 0 || res.Tokens.RefreshToken != "rt-1" {
		t.Fatalf("expected sign-in refresh token reused, exchanges=%d tokens=%+v", b.exchanges, res.Tokens)
	}
}

func TestSubmitCode_ExchangeFailure(t *testing.T) {
	b := &fakeBackend{
		signIn:      identity.PhoneSignIn{IDToken: "id-1"},
		exchangeErr: &domain.ProviderError{Op: "token", Status: 400, Message: "INVALID_GRANT"},
	}
	v := newVerifier(b, nil)
	ctx := context.Background()

	_, _ = v.RequestCode(ctx, "", "+12345678900", 1000, true)
	if _, err := v.SubmitCode(ctx, "", "123456", 1000); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSubmitCode_EmptyIdentityIsFailedResult(t *testing.T) {
	v := newVerifier(&fakeBackend{}, nil)
	ctx := context.Background()

	_, _ = v.RequestCode(ctx, "", "+12345678900", 1000, true)
	res, err := v.SubmitCode(ctx, "", "123456", 1000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Success || res.ErrorMessage == "" {
		t.Fatalf("expected failed result, got %+v", res)
	}
}

func TestRedisStore_TakeConsumes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "", "S1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "", "S2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("phone:session:default") {
		t.Fatalf("expected default slot key")
	}
	if ttl := mr.TTL("phone:session:default"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	info, ok, err := store.Take(ctx, "")
	if err != nil || !ok || info != "S2" {
		t.Fatalf("take: info=%q ok=%v err=%v", info, ok, err)
	}
	if _, ok, _ := store.Take(ctx, ""); ok {
		t.Fatalf("expected session consumed")
	}
}
