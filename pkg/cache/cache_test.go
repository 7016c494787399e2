package cache

import (
	"context"
	"testing"
	"time"
)

func TestNull(t *testing.T) {
	ctx := context.Background()
	c := NewNull()
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_, hit, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("null cache reported a hit")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "pypi:requests", []byte(`{"releases":{}}`), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, hit, err := c.Get(ctx, "pypi:requests")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after Set")
	}
	if string(data) != `{"releases":{}}` {
		t.Errorf("Get = %q, want stored value", data)
	}

	if err := c.Delete(ctx, "pypi:requests"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "pypi:requests"); hit {
		t.Error("expected miss after Delete")
	}
}

func TestFileMisses(t *testing.T) {
	ctx := context.Background()
	c, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	t.Run("absent key", func(t *testing.T) {
		if _, hit, err := c.Get(ctx, "nope"); err != nil || hit {
			t.Errorf("Get(absent) = hit=%v err=%v, want miss", hit, err)
		}
	})

	t.Run("expired entry", func(t *testing.T) {
		if err := c.Set(ctx, "old", []byte("x"), -time.Second); err != nil {
			t.Fatal(err)
		}
		if _, hit, _ := c.Get(ctx, "old"); hit {
			t.Error("expected expired entry to miss")
		}
	})

	t.Run("delete absent key", func(t *testing.T) {
		if err := c.Delete(ctx, "never-set"); err != nil {
			t.Errorf("Delete(absent) = %v, want nil", err)
		}
	})
}

func TestKey(t *testing.T) {
	a := Key("pypi", "requests")
	b := Key("pypi", "requests")
	if a != b {
		t.Error("Key is not deterministic")
	}
	if a == Key("pypi", "flask") {
		t.Error("different ids should produce different keys")
	}
	if a == Key("npm", "requests") {
		t.Error("different prefixes should produce different keys")
	}
	if a[:5] != "pypi:" {
		t.Errorf("Key = %q, want pypi: prefix", a)
	}
}
