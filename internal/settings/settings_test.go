package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnabledDefaultsTrue(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	enabled, err := s.Enabled(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestSetEnabledRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetEnabled(ctx, "chan-1", false))
	enabled, err := s.Enabled(ctx, "chan-1")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetEnabled(ctx, "chan-1", true))
	enabled, err = s.Enabled(ctx, "chan-1")
	require.NoError(t, err)
	assert.True(t, enabled)

	// Other channels are untouched.
	other, err := s.Enabled(ctx, "chan-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestMastodonInstances(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	hosts, err := s.MastodonInstances(ctx)
	require.NoError(t, err)
	assert.Empty(t, hosts)

	require.NoError(t, s.AddMastodonInstance(ctx, "hachyderm.io"))
	require.NoError(t, s.AddMastodonInstance(ctx, "fosstodon.org"))
	require.NoError(t, s.AddMastodonInstance(ctx, "hachyderm.io"))

	hosts, err = s.MastodonInstances(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fosstodon.org", "hachyderm.io"}, hosts)
}
