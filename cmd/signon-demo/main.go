// Command signon-demo runs one full credential lifecycle against a freshly
// built engine: begin login, deliver the code, complete login, verify the
// access token, refresh, log out, and show the revoked token being rejected.
// Audit events stream to stdout as JSON.
//
// By default the engine uses its in-memory stores. With -redis-addr (or an
// embedded miniredis via -miniredis) the three ephemeral stores are
// externalized to Redis instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	signon "github.com/davrx/signon"
)

type demoProvider struct {
	user signon.UserRecord
}

func (p *demoProvider) GetUserByIdentifier(ctx context.Context, identifier string) (*signon.UserRecord, error) {
	if identifier != p.user.Email {
		return nil, nil
	}
	user := p.user
	return &user, nil
}

type demoMessenger struct {
	delivered chan signon.Message
}

func (m *demoMessenger) Deliver(ctx context.Context, accountKey string, msg signon.Message) error {
	fmt.Printf("deliver to %s: kind=%s code=%s expires_in=%s\n", accountKey, msg.Kind, msg.Code, msg.ExpiresIn)
	m.delivered <- msg
	return nil
}

func main() {
	var (
		redisAddr   = flag.String("redis-addr", "", "redis address; empty means in-memory stores")
		useMini     = flag.Bool("miniredis", false, "run against an embedded miniredis")
		otpTTL      = flag.Duration("otp-ttl", 5*time.Minute, "one-time code lifetime")
		signingKeyA = flag.String("access-key", "demo-access-key-0123456789abcdef", "hs256 access signing key")
		signingKeyR = flag.String("refresh-key", "demo-refresh-key-0123456789abcde", "hs256 refresh signing key")
	)
	flag.Parse()

	ctx := context.Background()

	cfg := signon.Config{}
	cfg.OTP.TTL = *otpTTL
	cfg.OTP.Digits = 6
	cfg.OTP.MaxAttempts = 5
	cfg.Reset.TTL = 15 * time.Minute
	cfg.Reset.MaxAttempts = 5
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.AccessKey = []byte(*signingKeyA)
	cfg.JWT.RefreshKey = []byte(*signingKeyR)
	cfg.JWT.Issuer = "signon-demo"
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Metrics.Enabled = true

	provider := &demoProvider{user: signon.UserRecord{SubjectID: "42", Email: "a@b.com"}}
	messenger := &demoMessenger{delivered: make(chan signon.Message, 1)}

	builder := signon.New().
		WithConfig(cfg).
		WithUserProvider(provider).
		WithMessenger(messenger).
		WithAuditSink(signon.NewJSONWriterSink(os.Stdout))

	var cleanup func()
	addr := *redisAddr
	if *useMini && addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
	}
	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		builder = builder.WithRedis(client)
		fmt.Printf("stores externalized to redis at %s\n", addr)
	}
	if cleanup != nil {
		defer cleanup()
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.BeginLogin(ctx, "a@b.com"); err != nil {
		fail("BeginLogin", err)
	}
	msg := <-messenger.delivered

	pair, err := engine.CompleteLogin(ctx, "a@b.com", msg.Code)
	if err != nil {
		fail("CompleteLogin", err)
	}
	fmt.Println("login complete; tokens issued")

	claims, err := engine.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		fail("VerifyAccess", err)
	}
	fmt.Printf("access verified: subject=%s email=%s class=%s\n", claims.SubjectID, claims.Email, claims.Class)

	newAccess, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		fail("Refresh", err)
	}
	fmt.Println("refresh succeeded; new access token minted")

	if err := engine.Logout(ctx, newAccess, pair.RefreshToken); err != nil {
		fail("Logout", err)
	}
	fmt.Println("logged out; both tokens revoked")

	if _, err := engine.VerifyAccess(ctx, newAccess); err == nil {
		fail("VerifyAccess after logout", fmt.Errorf("revoked token accepted"))
	}
	fmt.Println("revoked access token rejected")

	if _, err := engine.Refresh(ctx, pair.RefreshToken); err == nil {
		fail("Refresh after logout", fmt.Errorf("revoked refresh token accepted"))
	}
	fmt.Println("revoked refresh token rejected")

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: tokens_issued=%d refresh_success=%d revocations=%d\n",
		snap.Counters[signon.MetricTokensIssued],
		snap.Counters[signon.MetricRefreshSuccess],
		snap.Counters[signon.MetricRevocation])
}

func fail(op string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", op, err)
	os.Exit(1)
}
