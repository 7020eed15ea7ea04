package render

import (
	"sync"
	"testing"
)

func TestCacheKey(t *testing.T) {
	base := DefaultOptions()

	if cacheKey(base) == cacheKey(base.WithWidth(100)) {
		t.Error("Different widths should produce different keys")
	}
	if cacheKey(base) == cacheKey(base.WithStyle("light")) {
		t.Error("Different styles should produce different keys")
	}
	if cacheKey(base) != cacheKey(DefaultOptions()) {
		t.Error("Same options should produce same key")
	}
}

func TestPoolGetAndPut(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions()
	renderer, err := globalPool.get(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CacheSize() != 1 {
		t.Errorf("expected pool count 1, got %d", CacheSize())
	}
	globalPool.put(opts, renderer)

	narrow := opts.WithWidth(40)
	other, err := globalPool.get(narrow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	globalPool.put(narrow, other)

	if CacheSize() != 2 {
		t.Errorf("expected pool count 2, got %d", CacheSize())
	}
}

func TestPoolConcurrency(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions()
	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			renderer, err := globalPool.get(opts)
			if err != nil {
				errs <- err
				return
			}
			if _, err := renderer.Render("**reply**"); err != nil {
				errs <- err
				return
			}
			globalPool.put(opts, renderer)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}
	if CacheSize() != 1 {
		t.Errorf("expected pool count 1 after concurrent access, got %d", CacheSize())
	}
}

func TestGlamourStyle(t *testing.T) {
	tests := map[string]string{
		"tokyonight":  "tokyo-night",
		"":            "dark",
		"light":       "light",
		"/tmp/x.json": "/tmp/x.json",
	}
	for in, want := range tests {
		if got := glamourStyle(in); got != want {
			t.Errorf("glamourStyle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRendererWithInvalidStyle(t *testing.T) {
	if _, err := newRenderer(DefaultOptions().WithStyle("invalid_style_path")); err == nil {
		t.Error("expected error for invalid style")
	}
}
