package transaction

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennyg/scribe/internal/manifest"
	"github.com/kennyg/scribe/internal/paths"
	"github.com/kennyg/scribe/internal/resource"
)

func newTestStore(t *testing.T) *manifest.Store {
	t.Helper()
	base := t.TempDir()
	resolver, err := paths.New(filepath.Join(base, "store"), filepath.Join(base, "meta"))
	require.NoError(t, err)
	return manifest.NewStore(resolver, log.New(io.Discard), "test")
}

func begin(t *testing.T) *Transaction {
	t.Helper()
	tx, err := Begin(newTestStore(t), log.New(io.Discard))
	require.NoError(t, err)
	return tx
}

func TestRollbackRestoresAllTrackedKinds(t *testing.T) {
	dir := t.TempDir()
	created := filepath.Join(dir, "created.md")
	modified := filepath.Join(dir, "modified.md")
	deleted := filepath.Join(dir, "deleted.md")

	require.NoError(t, os.WriteFile(modified, []byte("original modified"), 0o644))
	require.NoError(t, os.WriteFile(deleted, []byte("original deleted"), 0o644))

	tx := begin(t)

	require.NoError(t, tx.TrackCreate(created))
	require.NoError(t, os.WriteFile(created, []byte("new file"), 0o644))

	require.NoError(t, tx.TrackModify(modified))
	require.NoError(t, os.WriteFile(modified, []byte("changed"), 0o644))

	require.NoError(t, tx.TrackDelete(deleted))
	require.NoError(t, os.Remove(deleted))

	require.NoError(t, tx.Rollback())

	// Created path is gone, the other two are byte-identical to their
	// pre-transaction content.
	_, err := os.Stat(created)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(modified)
	require.NoError(t, err)
	assert.Equal(t, []byte("original modified"), data)

	data, err = os.ReadFile(deleted)
	require.NoError(t, err)
	assert.Equal(t, []byte("original deleted"), data)
}

func TestRollbackRestoresDirectoryTree(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "bundle")
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "sub", "b.md"), []byte("b"), 0o644))

	tx := begin(t)
	require.NoError(t, tx.TrackDelete(tree))
	require.NoError(t, os.RemoveAll(tree))

	require.NoError(t, tx.Rollback())

	data, err := os.ReadFile(filepath.Join(tree, "sub", "b.md"))
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
}

func TestTrackModifyMissingPath(t *testing.T) {
	tx := begin(t)
	defer tx.Rollback()

	err := tx.TrackModify(filepath.Join(t.TempDir(), "nope.md"))
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestCommitDiscardsBackups(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	tx := begin(t)
	require.NoError(t, tx.TrackModify(file))
	require.NoError(t, os.WriteFile(file, []byte("v2"), 0o644))

	require.NoError(t, tx.Commit())

	_, err := os.Stat(tx.scratch)
	assert.True(t, os.IsNotExist(err), "scratch area should be removed on commit")

	// Commit is idempotent; rollback after commit is rejected.
	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.Rollback(), ErrClosed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestRollbackIdempotent(t *testing.T) {
	tx := begin(t)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Commit(), ErrClosed)
}

func TestTrackAfterClose(t *testing.T) {
	tx := begin(t)
	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.TrackCreate("/tmp/x"), ErrClosed)
	assert.ErrorIs(t, tx.TrackManifestUpdate(), ErrClosed)
}

func TestManifestSnapshotRestore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddResource(resource.New(resource.TypeAgent, "zen")))

	tx, err := Begin(store, log.New(io.Discard))
	require.NoError(t, err)

	require.NoError(t, tx.TrackManifestUpdate())

	// Mutate the manifest after the snapshot.
	require.NoError(t, store.AddResource(resource.New(resource.TypeAgent, "intruder")))
	removed, err := store.RemoveResource(resource.TypeAgent, "zen")
	require.NoError(t, err)
	require.True(t, removed)

	require.NoError(t, tx.Rollback())

	res, err := store.GetResource(resource.TypeAgent, "zen")
	require.NoError(t, err)
	assert.NotNil(t, res, "snapshot should restore the removed resource")

	res, err = store.GetResource(resource.TypeAgent, "intruder")
	require.NoError(t, err)
	assert.Nil(t, res, "snapshot should drop the post-snapshot addition")
}

func TestRollbackCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.md")
	second := filepath.Join(dir, "second.md")
	require.NoError(t, os.WriteFile(first, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("two"), 0o644))

	tx := begin(t)
	require.NoError(t, tx.TrackModify(first))
	require.NoError(t, tx.TrackModify(second))

	require.NoError(t, os.WriteFile(first, []byte("changed one"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("changed two"), 0o644))

	// Sabotage the first operation's backup so its restoration fails.
	require.NoError(t, os.Remove(tx.ops[0].backupPath))

	err := tx.Rollback()
	var rbErr *RollbackError
	require.ErrorAs(t, err, &rbErr)
	require.Len(t, rbErr.Failures, 1)
	assert.Equal(t, first, rbErr.Failures[0].Path)

	// The other restoration was still attempted and succeeded.
	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestRunCommitsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	store := newTestStore(t)

	err := Run(store, log.New(io.Discard), func(tx *Transaction) error {
		if err := tx.TrackCreate(file); err != nil {
			return err
		}
		return os.WriteFile(file, []byte("kept"), 0o644)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), data)
}

func TestRunRollsBackOnError(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	store := newTestStore(t)

	boom := errors.New("boom")
	err := Run(store, log.New(io.Discard), func(tx *Transaction) error {
		if err := tx.TrackCreate(file); err != nil {
			return err
		}
		if err := os.WriteFile(file, []byte("doomed"), 0o644); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRollsBackOnPanic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.md")
	store := newTestStore(t)

	assert.Panics(t, func() {
		_ = Run(store, log.New(io.Discard), func(tx *Transaction) error {
			_ = tx.TrackCreate(file)
			_ = os.WriteFile(file, []byte("doomed"), 0o644)
			panic("abnormal exit")
		})
	})

	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}
