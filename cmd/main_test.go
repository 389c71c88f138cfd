package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"contentblocker/adblock"
	"contentblocker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListLoaderDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	// 列表目录为空时所有分类都由内置列表提供
	mgr, err := adblock.NewManager(context.Background(), listLoader(cfg, path), adblock.EnabledLists(cfg.Blocking), adblock.Options{})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	assert.Equal(t, adblock.EnabledLists(cfg.Blocking), mgr.Current().Names())

	// 目录中的列表优先
	dir := cfg.ListsDir(path)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "disconnect-social.json"), []byte(`[]`), 0o644))

	require.NoError(t, mgr.Rebuild(context.Background(), []string{"disconnect-social", "web-fonts"}))
	st, ok := mgr.ListStatus("disconnect-social")
	require.True(t, ok)
	assert.Equal(t, 0, st.RuleCount)

	st, ok = mgr.ListStatus("web-fonts")
	require.True(t, ok)
	assert.Equal(t, 1, st.RuleCount)
}
