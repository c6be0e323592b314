package reasonstore_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/reasonstore"
)

func TestSetGetRoundTrip(t *testing.T) {
	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")

	require.NoError(t, store.Set("foo-1.0-1.x86_64", reasonstore.Reason, "user"))

	v, ok, err := store.Get("foo-1.0-1.x86_64", reasonstore.Reason)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user", v)
}

func TestGetMissingIsNotAnError(t *testing.T) {
	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")

	_, ok, err := store.Get("nonexistent", reasonstore.Reason)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveAll(t *testing.T) {
	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")

	require.NoError(t, store.Set("foo-1.0-1.x86_64", reasonstore.Reason, "user"))
	require.NoError(t, store.Set("foo-1.0-1.x86_64", reasonstore.FromRepo, "fedora"))
	require.NoError(t, store.RemoveAll("foo-1.0-1.x86_64"))

	_, ok, err := store.Get("foo-1.0-1.x86_64", reasonstore.Reason)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnrecognisedKeyRejected(t *testing.T) {
	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")
	err := store.Set("foo", reasonstore.Key("bogus"), "x")
	assert.Error(t, err)
}
