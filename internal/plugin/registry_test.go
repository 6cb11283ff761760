package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/config"
)

func loaderFor(name string, rooms ...string) Loader {
	return func(opts Options) (*Plugin, error) {
		p, err := New(name, "test", "", opts)
		if err != nil {
			return nil, err
		}
		p.AddCommand(name, HandlerFunc(nil), "", rooms...)
		return p, nil
	}
}

func TestRegistryLoadSkipsMisconfiguredPlugin(t *testing.T) {
	reg := NewRegistry(nil)
	needsFoo := func(opts Options) (*Plugin, error) {
		p, err := New("needsfoo", "", "", opts)
		if err != nil {
			return nil, err
		}
		if err := p.AddConfig("foo", nil, true); err != nil {
			return nil, err
		}
		return p, nil
	}

	errs := reg.Load(testOptions(t), loaderFor("first"), needsFoo, loaderFor("second"))
	require.Len(t, errs, 1)

	var cfgErr *config.Error
	require.True(t, errors.As(errs[0], &cfgErr))
	assert.Equal(t, "foo", cfgErr.Option)
	assert.Equal(t, "needsfoo", cfgErr.Plugin)

	var names []string
	for _, p := range reg.Plugins() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestRegistryDuplicatePlugin(t *testing.T) {
	reg := NewRegistry(nil)
	opts := testOptions(t)

	errs := reg.Load(opts, loaderFor("dup"), loaderFor("dup"))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrDuplicatePlugin)
	assert.Len(t, reg.Plugins(), 1)

	_, ok := reg.Plugin("dup")
	assert.True(t, ok)
	_, ok = reg.Plugin("missing")
	assert.False(t, ok)
}

func TestRegistryForRoom(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Load(testOptions(t), loaderFor("everywhere"), loaderFor("scoped", "!ops"))

	assert.Len(t, reg.ForRoom("!ops"), 2)
	only := reg.ForRoom("!lobby")
	require.Len(t, only, 1)
	assert.Equal(t, "everywhere", only[0].Name())
}
