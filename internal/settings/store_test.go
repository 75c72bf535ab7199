package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSectionEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))

	values, err := s.Section(context.Background(), "gamepad-mapping")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSaveSettingsUpserts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))

	require.NoError(t, s.SaveSettings(ctx, "gamepad-mapping", map[string]string{
		"linuxsdl3.padone": "* 1- * 0-",
		"linuxsdl3.padtwo": "* 3",
	}))
	require.NoError(t, s.SaveSettings(ctx, "gamepad-mapping", map[string]string{
		"linuxsdl3.padone": "* 1+ * 0+",
	}))
	require.NoError(t, s.SaveSettings(ctx, "other", map[string]string{"a": "b"}))

	values, err := s.Section(ctx, "gamepad-mapping")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"linuxsdl3.padone": "* 1+ * 0+",
		"linuxsdl3.padtwo": "* 3",
	}, values)


	other, err := s.Section(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "b"}, other)
}

func TestReopenKeepsSettings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.SaveSettings(ctx, "gamepad", map[string]string{"ruleset": "walk"}))
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	values, err := s.Section(ctx, "gamepad")
	require.NoError(t, err)
	assert.Equal(t, "walk", values["ruleset"])
}

func TestStoreImplementsProvider(t *testing.T) {
	var _ Provider = (*Store)(nil)
}
