package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBErrorKindAndMessage(t *testing.T) {
	err := newErr(NoSuchElement, "field %s not found", "age")
	require.Error(t, err)
	assert.True(t, IsKind(err, NoSuchElement))
	assert.False(t, IsKind(err, DbError))
	assert.Contains(t, err.Error(), "age")
	assert.Contains(t, err.Error(), "NoSuchElement")
}

func TestConfigValidateRejectsUndersizedPages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PageSize = 4
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, IllegalArgument))
}

func TestConfigDefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}
