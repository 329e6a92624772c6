package main

import (
	"errors"
	"testing"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLatLon(t *testing.T) {
	latitude, longitude, err := parseLatLon("35.6892, 51.389")
	require.NoError(t, err)
	assert.Equal(t, 35.6892, latitude)
	assert.Equal(t, 51.389, longitude)

	for _, value := range []string{"", "35.6892", "a,b", "1,2,3"} {
		_, _, err := parseLatLon(value)
		assert.True(t, errors.Is(err, model.ErrConfig), value)
	}
}

func TestParseVNFDraft(t *testing.T) {
	draft, err := parseVNFDraft("fw:1:2:10")
	require.NoError(t, err)
	assert.Equal(t, model.VNFDraft{Name: "fw", CPU: 1, MemoryGiB: 2, StorageGB: 10}, draft)

	draft, err = parseVNFDraft("cache:2:4:40:1:3")
	require.NoError(t, err)
	assert.Equal(t, 1, draft.MinInstances)
	assert.Equal(t, 3, draft.MaxInstances)

	for _, value := range []string{"fw", "fw:1:2", "fw:1:2:x", "fw:1:2:3:1"} {
		_, err := parseVNFDraft(value)
		assert.True(t, errors.Is(err, model.ErrConfig), value)
	}
}
