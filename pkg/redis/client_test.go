package redis

import (
	"testing"
	"time"

	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
)

func TestOptionsFromConfigURL(t *testing.T) {
	cfg := config.RedisConfig{
		URL:         "redis://:pass@localhost:6380/2",
		PoolSize:    15,
		DialTimeout: 3 * time.Second,
	}

	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig failed: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 15 {
		t.Fatalf("pool size fallback not applied, got %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	key := c.IdempotencyKey("admin-1|POST|/api/v1/drafts/abc/submit", "key-123")
	want := "od:idempotency:admin-1|POST|/api/v1/drafts/abc/submit:key-123"
	if key != want {
		t.Fatalf("unexpected key %q", key)
	}
}
