package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/thelabelsunday/invoice-checker/internal/common"
)

const testTTL = 10 * time.Minute

func newTestCache(start time.Time) (*DocCache, *time.Time) {
	now := start
	c := NewDocCache(testTTL)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheConsumeWithinTTL(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, now := newTestCache(base)
	c.Put("F1", []byte("pdf"))

	*now = base.Add(testTTL - time.Second)
	got, err := c.Consume("F1")
	if err != nil {
		t.Fatalf("Consume at T+TTL-1s: %v", err)
	}
	if string(got) != "pdf" {
		t.Fatalf("bytes = %q", got)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, now := newTestCache(base)
	c.Put("F1", []byte("pdf"))

	*now = base.Add(testTTL + time.Second)
	if _, err := c.Consume("F1"); !errors.Is(err, common.ErrCacheExpired) {
		t.Fatalf("err = %v, want ErrCacheExpired", err)
	}
	if c.Len() != 0 {
		t.Fatal("expired entry must be removed on lookup")
	}
}

func TestCacheMissingEntry(t *testing.T) {
	c, _ := newTestCache(time.Now())
	if _, err := c.Consume("nope"); !errors.Is(err, common.ErrCacheExpired) {
		t.Fatalf("err = %v, want ErrCacheExpired", err)
	}
}

func TestCacheAtMostOnceConsumption(t *testing.T) {
	c, _ := newTestCache(time.Now())
	c.Put("F1", []byte("pdf"))

	if _, err := c.Consume("F1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := c.Consume("F1"); !errors.Is(err, common.ErrDuplicateClick) {
		t.Fatalf("second consume err = %v, want ErrDuplicateClick", err)
	}

	c.Delete("F1")
	if _, err := c.Consume("F1"); !errors.Is(err, common.ErrCacheExpired) {
		t.Fatalf("consume after delete err = %v, want ErrCacheExpired", err)
	}
}

func TestCacheSweepOnInsert(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, now := newTestCache(base)
	c.Put("old", []byte("a"))

	*now = base.Add(testTTL + time.Minute)
	c.Put("new", []byte("b"))
	if c.Len() != 1 {
		t.Fatalf("entries = %d, want 1 after sweep", c.Len())
	}
	if _, err := c.Consume("new"); err != nil {
		t.Fatalf("fresh entry must survive the sweep: %v", err)
	}
}

func TestCachePutRefreshesEntry(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, now := newTestCache(base)
	c.Put("F1", []byte("v1"))

	*now = base.Add(5 * time.Minute)
	c.Put("F1", []byte("v2"))

	*now = base.Add(12 * time.Minute)
	got, err := c.Consume("F1")
	if err != nil {
		t.Fatalf("re-uploaded entry must use the new timestamp: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("bytes = %q, want v2", got)
	}
}
