package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis_SelectsDatabase(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(s.Addr(), 3)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.HSet(context.Background(), "bankdir:codes", "zenith bank", "057").Err(); err != nil {
		t.Fatalf("HSET: %v", err)
	}
	// miniredis keeps one keyspace per DB index
	s.Select(3)
	if got := s.HGet("bankdir:codes", "zenith bank"); got != "057" {
		t.Fatalf("value not written to db 3, got %q", got)
	}
}

func TestOpenRedis_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := OpenRedis(addr, 0)
	if err == nil {
		t.Fatal("expected ping error for a stopped server")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Fatalf("error should name the address, got %v", err)
	}
}
