package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coverage struct {
	ID       string   `json:"id"`
	Keywords []string `json:"keywords"`
}

func TestApplyFilter(t *testing.T) {
	input := map[string]interface{}{
		"version":  "1.0.0",
		"contents": []coverage{{ID: "dem", Keywords: []string{"height"}}, {ID: "landcover"}},
	}

	got, err := ApplyFilter(".contents[0].id", input)
	require.NoError(t, err)
	assert.Equal(t, "dem", got)

	got, err = ApplyFilter(".contents[].id", input)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"dem", "landcover"}, got)

	got, err = ApplyFilter("{v: .version}", input)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"v": "1.0.0"}, got)
}

func TestApplyFilterErrors(t *testing.T) {
	_, err := ApplyFilter(".contents[", nil)
	assert.ErrorContains(t, err, "could not parse filter")

	_, err = ApplyFilter(`error("denied")`, map[string]interface{}{})
	assert.ErrorContains(t, err, "could not apply filter")
}
