package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/source"
)

func TestSyncer_Capture(t *testing.T) {
	ctx := context.Background()
	p := policy.New()
	require.NoError(t, p.SetInt("port", 9001))

	st := NewMemoryStore()
	defer st.Close()

	syncer, err := NewSyncer(source.NewMemory("live", p), st, SyncerConfig{Name: "nightly"})
	require.NoError(t, err)

	snap, err := syncer.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nightly", snap.Name)

	got, err := st.Load(ctx, "nightly")
	require.NoError(t, err)
	v, _ := got.Policy.GetInt("port")
	assert.Equal(t, 9001, v)
}

func TestSyncer_RequiresName(t *testing.T) {
	_, err := NewSyncer(source.NewMemory("live", nil), NewMemoryStore(), SyncerConfig{})
	assert.Error(t, err)
}

func TestSyncer_EmptyScheduleIsIdle(t *testing.T) {
	syncer, err := NewSyncer(source.NewMemory("live", nil), NewMemoryStore(),
		SyncerConfig{Name: "n"})
	require.NoError(t, err)

	require.NoError(t, syncer.Start(context.Background()))
	assert.False(t, syncer.IsRunning())
	assert.Nil(t, syncer.NextRun())
}

func TestSyncer_InvalidSchedule(t *testing.T) {
	syncer, err := NewSyncer(source.NewMemory("live", nil), NewMemoryStore(),
		SyncerConfig{Name: "n", Schedule: "not a cron line"})
	require.NoError(t, err)

	err = syncer.Start(context.Background())
	assert.ErrorContains(t, err, "invalid cron schedule")
}

func TestSyncer_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := policy.New()
	require.NoError(t, p.SetInt("x", 1))

	syncer, err := NewSyncer(source.NewMemory("live", p), NewMemoryStore(),
		SyncerConfig{Name: "n", Schedule: "0 3 * * *"})
	require.NoError(t, err)

	require.NoError(t, syncer.Start(ctx))
	assert.True(t, syncer.IsRunning())
	require.NotNil(t, syncer.NextRun())

	syncer.Stop()
	assert.False(t, syncer.IsRunning())
	syncer.Stop() // second Stop is a no-op
}
