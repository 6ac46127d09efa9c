package testsupport

import (
	"testing"

	"tubesync/internal/config"
	"tubesync/internal/store"
)

// Config returns a configuration rooted in temporary directories so tests
// never touch the real data or log paths.
func Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

// Store opens an exclusion store on a temporary database and closes it when
// the test ends.
func Store(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(Config(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
