package storage

import (
	"testing"
	"time"

	"github.com/pipesight/pipesight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func testEvent(pipelineID, stage string, status types.Status) *types.Event {
	return &types.Event{
		PipelineID: pipelineID,
		Kind:       types.KindQuery,
		Stage:      stage,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		Data:       types.EventData{Status: status},
	}
}

func TestAppendAndReadAll(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	events := []*types.Event{
		testEvent("p1", "embedding", types.StatusProcessing),
		testEvent("p1", "embedding", types.StatusSuccess),
		testEvent("p1", types.StageOverall, types.StatusSuccess),
	}
	for _, ev := range events {
		require.NoError(t, store.Append("p1", ev))
	}

	got, err := store.ReadAll("p1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Append order is preserved
	for i, ev := range events {
		assert.Equal(t, ev.Stage, got[i].Stage)
		assert.Equal(t, ev.Data.Status, got[i].Data.Status)
	}
}

func TestReadAllUnknownPipelineID(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.ReadAll("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)

	raw, err := store.ReadAllRaw("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestAppendEmptyPipelineID(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Append("", testEvent("", "embedding", types.StatusProcessing)))
}

func TestListPipelineIDs(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ids, err := store.ListPipelineIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Append("p1", testEvent("p1", "embedding", types.StatusProcessing)))
	require.NoError(t, store.Append("p2", testEvent("p2", "upload", types.StatusProcessing)))
	require.NoError(t, store.Append("p1", testEvent("p1", "embedding", types.StatusSuccess)))

	ids, err = store.ListPipelineIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)
}

func TestSequenceIsolation(t *testing.T) {
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append("p1", testEvent("p1", "embedding", types.StatusProcessing)))
	require.NoError(t, store.Append("p2", testEvent("p2", "upload", types.StatusError)))

	p1, err := store.ReadAll("p1")
	require.NoError(t, err)
	require.Len(t, p1, 1)
	assert.Equal(t, "embedding", p1[0].Stage)

	p2, err := store.ReadAll("p2")
	require.NoError(t, err)
	require.Len(t, p2, 1)
	assert.Equal(t, "upload", p2[0].Stage)
}

func TestReopenPersistence(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append("p1", testEvent("p1", "embedding", types.StatusSuccess)))
	require.NoError(t, store.Append("p1", testEvent("p1", types.StageOverall, types.StatusSuccess)))
	require.NoError(t, store.Close())

	// A record whose Append returned nil must survive a process restart
	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ReadAll("p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.StageOverall, got[1].Stage)
}

func TestReadAllSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append("p1", testEvent("p1", "embedding", types.StatusSuccess)))
	require.NoError(t, store.Close())

	// Corrupt the sequence directly, the way a partial disk failure would
	db, err := bolt.Open(dir+"/pipesight.db", 0600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPipelines).Bucket([]byte("p1"))
		seq, _ := b.NextSequence()
		return b.Put(itob(seq), []byte("{not json"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ReadAll("p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "embedding", got[0].Stage)

	// The raw read surface hands both records to the caller
	raw, err := reopened.ReadAllRaw("p1")
	require.NoError(t, err)
	assert.Len(t, raw, 2)
}
