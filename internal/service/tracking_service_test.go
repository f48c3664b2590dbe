package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/model"
)

func TestRecordOpen_FirstHitOnly(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")
	f.seedMessage("m1", "c1", "p1", t0)
	f.store.messages["m1"].Status = model.MessageSent
	f.store.messages["m1"].TrackingToken = strPtr("tok")
	f.store.links[linkKey("c1", "p1")].Status = model.LinkSent
	ctx := context.Background()

	first, err := f.tracking.RecordOpen(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := f.tracking.RecordOpen(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, again)

	assert.Len(t, f.store.eventsOf(model.EventOpen), 1)
	assert.Equal(t, model.LinkOpened, f.store.links[linkKey("c1", "p1")].Status)
	assert.NotNil(t, f.store.message("m1").OpenedAt)
}

func TestRecordOpen_IgnoresUnknownOrUnsent(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")
	f.seedMessage("m1", "c1", "p1", t0)
	f.store.messages["m1"].TrackingToken = strPtr("tok")
	ctx := context.Background()

	for _, token := range []string{"", "nope", "tok"} {
		ok, err := f.tracking.RecordOpen(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok, token)
	}
	assert.Empty(t, f.store.eventsOf(model.EventOpen))
}
