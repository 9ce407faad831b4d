package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegister_FirstBindingWins(t *testing.T) {
	reg := New(zap.NewNop())

	reg.Register("x", 1)
	reg.Register("x", 2)

	assert.Equal(t, 1, reg.Get("x"), "duplicate registration must not overwrite")
}

func TestGet_MissReturnsNil(t *testing.T) {
	reg := New(nil)

	assert.Nil(t, reg.Get("unbound"))
	assert.False(t, reg.Has("unbound"))
}

func TestHas(t *testing.T) {
	reg := New(nil)
	reg.Register("svc", struct{}{})

	assert.True(t, reg.Has("svc"))
}

func TestUpgrade_AllowListedNameReplacesBinding(t *testing.T) {
	reg := New(nil)

	require.NoError(t, reg.Upgrade("logger", "stub"))
	require.NoError(t, reg.Upgrade("logger", "real"))

	assert.Equal(t, "real", reg.Get("logger"))
}

func TestUpgrade_RejectsArbitraryNames(t *testing.T) {
	reg := New(nil)
	reg.Register("x", 1)

	err := reg.Upgrade("x", 2)

	require.Error(t, err)
	assert.Equal(t, 1, reg.Get("x"), "rejected upgrade must leave binding intact")
}

func TestUpgrade_RegistersWhenUnbound(t *testing.T) {
	reg := New(nil)

	require.NoError(t, reg.Upgrade("safeHandler", "stub"))
	assert.Equal(t, "stub", reg.Get("safeHandler"))
}

func TestNamesAndLen(t *testing.T) {
	reg := New(nil)
	reg.Register("a", 1)
	reg.Register("b", 2)

	assert.Equal(t, 2, reg.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}
