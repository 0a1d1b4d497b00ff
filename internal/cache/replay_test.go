package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryReplayCache_FirstUseOnly(t *testing.T) {
	c := NewMemoryReplayCache()
	ctx := context.Background()

	first, err := c.MarkUsed(ctx, "token-a", time.Minute)
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if !first {
		t.Error("first use reported as replay")
	}

	again, err := c.MarkUsed(ctx, "token-a", time.Minute)
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if again {
		t.Error("replay reported as first use")
	}
}

func TestMemoryReplayCache_DistinctTokens(t *testing.T) {
	c := NewMemoryReplayCache()
	ctx := context.Background()

	for _, tok := range []string{"token-a", "token-b", "token-c"} {
		first, err := c.MarkUsed(ctx, tok, time.Minute)
		if err != nil {
			t.Fatalf("MarkUsed(%q): %v", tok, err)
		}
		if !first {
			t.Errorf("MarkUsed(%q) = false on first use", tok)
		}
	}
}

func TestMemoryReplayCache_ExpiredMarkForgotten(t *testing.T) {
	c := NewMemoryReplayCache()
	ctx := context.Background()

	// A mark whose TTL has passed no longer counts as seen. The token
	// itself would be expired by then anyway.
	if _, err := c.MarkUsed(ctx, "token-a", -time.Second); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}

	first, err := c.MarkUsed(ctx, "token-a", time.Minute)
	if err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if !first {
		t.Error("expired mark still counted as seen")
	}
}
