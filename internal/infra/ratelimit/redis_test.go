package ratelimit

import "testing"

func TestRedisLimiterRequiresAddr(t *testing.T) {
	if _, err := NewRedisLimiter("", "", 0, nil); err == nil {
		t.Fatal("expected error for missing addr")
	}
}

func TestDecodeCountReply(t *testing.T) {
	count, ttl, err := decodeCountReply([]any{int64(4), int64(1500)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if count != 4 || ttl != 1500 {
		t.Fatalf("got count=%d ttl=%d", count, ttl)
	}

	// A fresh key can report a negative PTTL; the count still stands.
	count, ttl, err = decodeCountReply([]any{int64(1), int64(-1)})
	if err != nil {
		t.Fatalf("decode fresh key: %v", err)
	}
	if count != 1 || ttl != -1 {
		t.Fatalf("got count=%d ttl=%d", count, ttl)
	}

	if _, _, err := decodeCountReply("nope"); err == nil {
		t.Fatal("expected error for non-array reply")
	}
	if _, _, err := decodeCountReply([]any{int64(1)}); err == nil {
		t.Fatal("expected error for short reply")
	}
	if _, _, err := decodeCountReply([]any{"1", int64(0)}); err == nil {
		t.Fatal("expected error for non-integer count")
	}
}
