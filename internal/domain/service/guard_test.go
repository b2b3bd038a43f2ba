package service

import (
	"testing"
	"time"
)

func TestGuardCooldown(t *testing.T) {
	g := NewExecutionGuard(10 * time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	if ok, _ := g.Allow("BTC>USD>ETH>BTC"); !ok {
		t.Fatal("first attempt denied")
	}
	if ok, why := g.Allow("BTC>USD>ETH>BTC"); ok {
		t.Fatal("second attempt inside cooldown allowed")
	} else if why == "" {
		t.Error("denial without reason")
	}

	// a different path is unaffected
	if ok, _ := g.Allow("BTC>USD>SOL>BTC"); !ok {
		t.Error("unrelated path denied")
	}

	now = now.Add(11 * time.Second)
	if ok, _ := g.Allow("BTC>USD>ETH>BTC"); !ok {
		t.Error("attempt after cooldown denied")
	}
}

func TestGuardDenialDoesNotExtendCooldown(t *testing.T) {
	g := NewExecutionGuard(10 * time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	g.Allow("sig")
	now = now.Add(9 * time.Second)
	g.Allow("sig") // denied, must not refresh the timestamp
	now = now.Add(2 * time.Second)
	if ok, _ := g.Allow("sig"); !ok {
		t.Error("cooldown was extended by a denied attempt")
	}
}
