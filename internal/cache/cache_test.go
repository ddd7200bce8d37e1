package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)
		if err := cache.Delete(ctx, tenantID, "key2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if val, _ := cache.Get(ctx, tenantID, "key2"); val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "shared", []byte("mine"), time.Minute)
		if val, _ := cache.Get(ctx, "tenant-002", "shared"); val != nil {
			t.Error("expected other tenant to miss")
		}
	})

	t.Run("TenantRequired", func(t *testing.T) {
		if _, err := cache.Get(ctx, "", "k"); !errors.Is(err, ErrTenantRequired) {
			t.Errorf("expected ErrTenantRequired, got %v", err)
		}
		if err := cache.Set(ctx, "", "k", nil, time.Minute); !errors.Is(err, ErrTenantRequired) {
			t.Errorf("expected ErrTenantRequired, got %v", err)
		}
	})
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	_ = cache.Set(ctx, "t", "expiring", []byte("temp"), time.Minute)
	if val, _ := cache.Get(ctx, "t", "expiring"); string(val) != "temp" {
		t.Fatalf("expected value before expiry, got %q", val)
	}

	now = now.Add(2 * time.Minute)
	if val, _ := cache.Get(ctx, "t", "expiring"); val != nil {
		t.Error("expected nil after TTL expiration")
	}
	if got := cache.Stats().Size; got != 0 {
		t.Errorf("expected expired entry to be removed, size %d", got)
	}
}

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(3)

	for _, k := range []string{"a", "b", "c"} {
		_ = cache.Set(ctx, "t", k, []byte(k), time.Minute)
	}
	// Touch "a" so "b" becomes least recently used.
	_, _ = cache.Get(ctx, "t", "a")
	_ = cache.Set(ctx, "t", "d", []byte("d"), time.Minute)

	if val, _ := cache.Get(ctx, "t", "b"); val != nil {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if val, _ := cache.Get(ctx, "t", k); string(val) != k {
			t.Errorf("expected %s to survive, got %q", k, val)
		}
	}

	stats := cache.Stats()
	if stats.Size != 3 || stats.Capacity != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Hits != 4 || stats.Misses != 1 {
		t.Errorf("expected 4 hits and 1 miss, got %+v", stats)
	}
}

func TestLRUCounter(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, err := cache.IncrementCounter(ctx, "t", "uploads", time.Hour)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	now = now.Add(2 * time.Hour)
	if got, _ := cache.IncrementCounter(ctx, "t", "uploads", time.Hour); got != 1 {
		t.Errorf("expected counter to reset after window, got %d", got)
	}
}

func TestLRUClose(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(10)
	_ = cache.Set(ctx, "t", "k", []byte("v"), time.Minute)

	if err := cache.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if val, _ := cache.Get(ctx, "t", "k"); val != nil {
		t.Error("expected cache to be cleared after close")
	}
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	local := NewLRUCache(10)
	remote := NewLRUCache(10)
	cache := NewTwoPhaseCache(local, remote, time.Minute)

	t.Run("WritesBothLayers", func(t *testing.T) {
		if err := cache.Set(ctx, "t", "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if val, _ := local.Get(ctx, "t", "k"); string(val) != "v" {
			t.Error("expected value in L1")
		}
		if val, _ := remote.Get(ctx, "t", "k"); string(val) != "v" {
			t.Error("expected value in L2")
		}
	})

	t.Run("PopulatesL1FromL2", func(t *testing.T) {
		_ = remote.Set(ctx, "t", "only-remote", []byte("r"), time.Hour)
		val, err := cache.Get(ctx, "t", "only-remote")
		if err != nil || string(val) != "r" {
			t.Fatalf("expected L2 hit, got %q (%v)", val, err)
		}
		if val, _ := local.Get(ctx, "t", "only-remote"); string(val) != "r" {
			t.Error("expected L1 to be populated")
		}
	})

	t.Run("DeleteBothLayers", func(t *testing.T) {
		if err := cache.Delete(ctx, "t", "k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if val, _ := remote.Get(ctx, "t", "k"); val != nil {
			t.Error("expected L2 entry removed")
		}
	})

	t.Run("CountersUseL2", func(t *testing.T) {
		_, _ = cache.IncrementCounter(ctx, "t", "c", time.Minute)
		got, _ := remote.IncrementCounter(ctx, "t", "c", time.Minute)
		if got != 2 {
			t.Errorf("expected shared counter 2, got %d", got)
		}
	})
}

func TestAssessmentCodec(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(10)
	rec := &domain.AssessmentRecord{
		ID:          "a-1",
		Kind:        domain.KindFraud,
		Subject:     "Jane Doe",
		SourceID:    "CLM-9",
		Tier:        domain.RiskHigh,
		Score:       74,
		EvaluatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Payload:     []byte(`{"overallScore":74}`),
	}

	if err := PutAssessment(ctx, cache, "t", rec, time.Minute); err != nil {
		t.Fatalf("PutAssessment failed: %v", err)
	}

	got, err := GetAssessment(ctx, cache, "t", "a-1")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached assessment")
	}
	if got.Score != 74 || got.Tier != domain.RiskHigh || got.Subject != "Jane Doe" || got.SourceID != "CLM-9" || got.TenantID != "t" {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.EvaluatedAt.Equal(rec.EvaluatedAt) {
		t.Errorf("expected evaluatedAt %v, got %v", rec.EvaluatedAt, got.EvaluatedAt)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("unexpected payload %s", got.Payload)
	}

	miss, err := GetAssessment(ctx, cache, "t", "a-2")
	if err != nil || miss != nil {
		t.Errorf("expected nil, nil on miss, got %v, %v", miss, err)
	}
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
