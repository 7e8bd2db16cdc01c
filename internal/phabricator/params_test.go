package phabricator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromJSON(t *testing.T) {
	t.Run("empty input yields empty params", func(t *testing.T) {
		params, err := ParamsFromJSON("")
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("flattens nested objects and arrays", func(t *testing.T) {
		params, err := ParamsFromJSON(`{
			"queryKey": "open",
			"limit": 25,
			"constraints": {"ids": [1, 2], "closed": false}
		}`)
		require.NoError(t, err)

		assert.Equal(t, "open", params.Get("queryKey"))
		assert.Equal(t, "25", params.Get("limit"))
		assert.Equal(t, "1", params.Get("constraints[ids][0]"))
		assert.Equal(t, "2", params.Get("constraints[ids][1]"))
		assert.Equal(t, "0", params.Get("constraints[closed]"))
	})

	t.Run("invalid JSON fails", func(t *testing.T) {
		_, err := ParamsFromJSON(`{"queryKey":`)
		require.Error(t, err)
	})
}
