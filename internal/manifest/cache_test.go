package manifest

import (
	"sync"
	"testing"
	"time"
)

func TestCache_FreshHit(t *testing.T) {
	c := NewCache(30 * time.Second)
	m := &Manifest{ActorID: "cloud_healing", RiskTier: "write"}
	c.Set("cloud_healing", m)

	result := c.Get("cloud_healing")
	if !result.Hit {
		t.Fatal("expected cache hit")
	}
	if result.NeedsRefresh {
		t.Fatal("expected fresh, got needs refresh")
	}
	if result.Manifest.ActorID != "cloud_healing" {
		t.Fatalf("expected cloud_healing, got %s", result.Manifest.ActorID)
	}
}

func TestCache_Miss(t *testing.T) {
	c := NewCache(30 * time.Second)
	result := c.Get("nonexistent")
	if result.Hit {
		t.Fatal("expected miss")
	}
	if result.Manifest != nil {
		t.Fatal("expected nil manifest on miss")
	}
}

func TestCache_NegativeCache(t *testing.T) {
	c := NewCache(30 * time.Second)
	c.Set("unknown_actor", nil) // negative cache

	result := c.Get("unknown_actor")
	if !result.Hit {
		t.Fatal("expected cache hit for negative cache")
	}
	if result.Manifest != nil {
		t.Fatal("expected nil manifest for negative cache")
	}
}

func TestCache_StaleHit_ReturnsValueAndSignalsRefresh(t *testing.T) {
	c := NewCache(1 * time.Millisecond)
	c.Set("cloud_reliability", &Manifest{ActorID: "cloud_reliability"})

	time.Sleep(5 * time.Millisecond)

	result := c.Get("cloud_reliability")
	if !result.Hit {
		t.Fatal("expected stale hit")
	}
	if !result.NeedsRefresh {
		t.Fatal("expected needs refresh on stale")
	}
	if result.Manifest.ActorID != "cloud_reliability" {
		t.Fatalf("expected cloud_reliability, got %s", result.Manifest.ActorID)
	}
}

func TestCache_StaleHit_OnlyOneRefreshSignal(t *testing.T) {
	c := NewCache(1 * time.Millisecond)
	c.Set("cloud_reliability", &Manifest{ActorID: "cloud_reliability"})

	time.Sleep(5 * time.Millisecond)

	refreshCount := 0
	for i := 0; i < 10; i++ {
		if c.Get("cloud_reliability").NeedsRefresh {
			refreshCount++
		}
	}
	if refreshCount != 1 {
		t.Fatalf("expected exactly 1 refresh signal, got %d", refreshCount)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(30 * time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set("actor", &Manifest{ActorID: "actor"})
			c.Get("actor")
			c.Delete("actor")
		}()
	}
	wg.Wait()
}

func BenchmarkCache_Get_FreshHit(b *testing.B) {
	c := NewCache(30 * time.Second)
	c.Set("cloud_healing", &Manifest{ActorID: "cloud_healing"})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Get("cloud_healing")
	}
}
