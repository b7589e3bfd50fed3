package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextMetadataRoundTrip(t *testing.T) {
	ctx := WithRID(context.Background(), "7:1:42")
	ctx = WithUserKey(ctx, "telegram:42")
	ctx = WithHandler(ctx, "MENU")

	assert.Equal(t, "7:1:42", RIDFrom(ctx))
	assert.Equal(t, "telegram:42", UserKeyFrom(ctx))
	assert.Equal(t, "MENU", HandlerFrom(ctx))
}

func TestContextMetadataAbsent(t *testing.T) {
	assert.Empty(t, RIDFrom(context.Background()))
	assert.Empty(t, UserKeyFrom(context.Background()))
	assert.Empty(t, HandlerFrom(context.Background()))
	assert.Empty(t, RIDFrom(nil))
}

func TestWithEmptyValuesDoNotStore(t *testing.T) {
	ctx := WithUserKey(context.Background(), "")
	ctx = WithHandler(ctx, "")
	assert.Empty(t, UserKeyFrom(ctx))
	assert.Empty(t, HandlerFrom(ctx))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Equal(t, L, FromContext(context.Background()))
	assert.Equal(t, L, FromContext(nil))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("boom")))
}

func TestRoundMS(t *testing.T) {
	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))
	assert.Equal(t, 2*time.Millisecond, RoundMS(1500*time.Microsecond))
	assert.Equal(t, time.Millisecond, RoundMS(1400*time.Microsecond))
}

func TestBuildRID(t *testing.T) {
	assert.Equal(t, "7:100:42", BuildRID(7, 100, 42))
}
