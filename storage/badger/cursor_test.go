package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/widensync/core"
)

func TestCursorStore_LoadDefaults(t *testing.T) {
	cursorStore, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	state, err := cursorStore.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, state.Offset)
	assert.Equal(t, core.DefaultBatchSize, state.BatchSize)
	assert.True(t, state.BatchComplete)
	assert.Empty(t, state.Items)
}

func TestCursorStore_RoundTrip(t *testing.T) {
	cursorStore, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	ctx := context.Background()

	saved := &core.CursorState{
		Offset:       30,
		BatchSize:    30,
		CurrentIndex: 2,
		Items: []core.Asset{
			{ID: "a1", Filename: "one.pdf", DownloadURL: "https://dam.example/a1"},
			{ID: "a2", Filename: "two.pdf", DownloadURL: "https://dam.example/a2"},
			{ID: "a3", Filename: "three.pdf", DownloadURL: "https://dam.example/a3"},
		},
		BatchComplete: false,
		TotalCount:    65,
	}
	require.NoError(t, cursorStore.Save(ctx, saved))

	loaded, err := cursorStore.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.Offset, loaded.Offset)
	assert.Equal(t, saved.CurrentIndex, loaded.CurrentIndex)
	assert.Equal(t, saved.TotalCount, loaded.TotalCount)
	require.Len(t, loaded.Items, 3)
	assert.Equal(t, "a2", loaded.Items[1].ID)
	assert.False(t, loaded.BatchComplete)
}

func TestCursorStore_LastWriterWins(t *testing.T) {
	cursorStore, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	ctx := context.Background()

	first := &core.CursorState{Offset: 30, BatchSize: 30, BatchComplete: true, TotalCount: 65}
	second := &core.CursorState{Offset: 60, BatchSize: 30, BatchComplete: true, TotalCount: 65}

	require.NoError(t, cursorStore.Save(ctx, first))
	require.NoError(t, cursorStore.Save(ctx, second))

	loaded, err := cursorStore.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.Offset)
}

func TestCursorStore_SaveRejectsInvalidState(t *testing.T) {
	cursorStore, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	// BatchComplete contradicts the half-consumed page.
	bad := &core.CursorState{
		BatchSize:     30,
		CurrentIndex:  0,
		Items:         []core.Asset{{ID: "a1", DownloadURL: "https://dam.example/a1"}},
		BatchComplete: true,
	}

	err = cursorStore.Save(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrInvalidCursorState)
}

func TestAuditSink_RecordAndRecent(t *testing.T) {
	_, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	ctx := context.Background()

	rows := []*core.AuditRecord{
		{AssetID: "a1", Reason: "Unsupported file type: .zip", Status: core.StatusSkipped},
		{AssetID: "a2", Reason: "Asset processing failed", Message: "download timeout", Status: core.StatusFailed},
		{AssetID: "a3", Reason: "No download link or no permission (403)", Status: core.StatusSkipped},
	}
	for _, row := range rows {
		require.NoError(t, auditSink.Record(ctx, row))
	}

	recent, err := auditSink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	// Most recent first.
	assert.Equal(t, "a3", recent[0].AssetID)
	assert.Equal(t, "a1", recent[2].AssetID)
	assert.False(t, recent[0].CreatedAt.IsZero())
}

func TestAuditSink_RecentLimit(t *testing.T) {
	_, auditSink, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	defer auditSink.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, auditSink.Record(ctx, &core.AuditRecord{AssetID: "a", Status: core.StatusFailed}))
	}

	recent, err := auditSink.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
