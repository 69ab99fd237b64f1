package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDeckID_RoundTrips(t *testing.T) {
	ctx := WithDeckID(context.Background(), "abc")
	require.Equal(t, "abc", GetContext(ctx).DeckID)
}

func TestWithStage_PreservesDeckID(t *testing.T) {
	ctx := WithDeckID(context.Background(), "abc")
	ctx = WithStage(ctx, "transform")

	lc := GetContext(ctx)
	require.Equal(t, "abc", lc.DeckID)
	require.Equal(t, "transform", lc.Stage)
}

func TestGetContext_EmptyContext_ZeroValue(t *testing.T) {
	require.Equal(t, LogContext{}, GetContext(context.Background()))
}
