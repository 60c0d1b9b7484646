package boardhealth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

func TestBoardHealthAlwaysOK(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signal.StatusOK, res.Status)
	assert.Equal(t, "board alive", res.Value)
	assert.False(t, res.TS.IsZero())
}

func TestBoardHealthMetaIsValid(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.NoError(t, signal.ValidateMeta(s.Meta()))
}
