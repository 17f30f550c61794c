// Package transaction gives multi-step install/remove/update sequences
// all-or-nothing observable effect by backing up file and manifest state
// before mutation and restoring it on rollback.
package transaction

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kennyg/scribe/internal/manifest"
)

type opKind int

const (
	opCreate opKind = iota
	opModify
	opDelete
	opManifestUpdate
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opModify:
		return "modify"
	case opDelete:
		return "delete"
	case opManifestUpdate:
		return "manifest-update"
	}
	return "unknown"
}

// operation is one reversible action. Owned by exactly one transaction.
type operation struct {
	kind       opKind
	path       string
	backupPath string
	snapshot   *manifest.Manifest
}

type txState int

const (
	stateOpen txState = iota
	stateCommitted
	stateRolledBack
)

// ErrClosed is returned when tracking is attempted on a transaction that
// was already committed or rolled back.
var ErrClosed = errors.New("transaction already closed")

// ErrMissingPath is returned by TrackModify/TrackDelete when the path to
// back up does not exist yet.
var ErrMissingPath = errors.New("cannot back up a path that does not exist")

// Failure records one restoration that could not be completed.
type Failure struct {
	Path string
	Err  error
}

// RollbackError reports a rollback in which one or more individual
// restorations failed. Every other restoration was still attempted;
// partial rollback is reported loudly, never swallowed.
type RollbackError struct {
	Failures []Failure
}

func (e *RollbackError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("rollback incomplete: %s: %v", e.Failures[0].Path, e.Failures[0].Err)
	}
	return fmt.Sprintf("rollback incomplete: %d operations failed to restore (first: %s: %v)",
		len(e.Failures), e.Failures[0].Path, e.Failures[0].Err)
}

// Unwrap exposes the underlying causes to errors.Is/As.
func (e *RollbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Transaction tracks a sequence of file and manifest mutations and can
// undo them as a unit. Not safe for concurrent use; each transaction is
// owned by one scope.
type Transaction struct {
	store   *manifest.Store
	logger  *log.Logger
	scratch string
	ops     []operation
	state   txState
}

// Begin opens a transaction with a private scratch area for backups.
func Begin(store *manifest.Store, logger *log.Logger) (*Transaction, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	scratch := filepath.Join(os.TempDir(), "scribe-tx-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return nil, fmt.Errorf("creating transaction scratch area: %w", err)
	}
	return &Transaction{store: store, logger: logger, scratch: scratch}, nil
}

// TrackCreate records that path did not exist before the transaction.
// No backup is taken; rollback deletes the path if present.
func (tx *Transaction) TrackCreate(path string) error {
	if tx.state != stateOpen {
		return ErrClosed
	}
	tx.ops = append(tx.ops, operation{kind: opCreate, path: path})
	return nil
}

// TrackModify backs up the current file (or directory tree) at path
// before the caller mutates it.
func (tx *Transaction) TrackModify(path string) error {
	return tx.backup(opModify, path)
}

// TrackDelete backs up the current file (or directory tree) at path
// before the caller removes it.
func (tx *Transaction) TrackDelete(path string) error {
	return tx.backup(opDelete, path)
}

func (tx *Transaction) backup(kind opKind, path string) error {
	if tx.state != stateOpen {
		return ErrClosed
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingPath, path)
		}
		return fmt.Errorf("inspecting %s: %w", path, err)
	}

	backupPath := filepath.Join(tx.scratch, fmt.Sprintf("%d-%s", len(tx.ops), filepath.Base(path)))
	if info.IsDir() {
		err = copyTree(path, backupPath)
	} else {
		err = copyFile(path, backupPath)
	}
	if err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}

	tx.ops = append(tx.ops, operation{kind: kind, path: path, backupPath: backupPath})
	return nil
}

// TrackManifestUpdate snapshots the entire current manifest document
// before the caller performs manifest mutations.
func (tx *Transaction) TrackManifestUpdate() error {
	if tx.state != stateOpen {
		return ErrClosed
	}
	snapshot, _, err := tx.store.Load()
	if err != nil {
		return fmt.Errorf("snapshotting manifest: %w", err)
	}
	tx.ops = append(tx.ops, operation{kind: opManifestUpdate, snapshot: snapshot})
	return nil
}

// Commit discards all backups. Idempotent; no rollback is possible
// afterwards.
func (tx *Transaction) Commit() error {
	switch tx.state {
	case stateCommitted:
		return nil
	case stateRolledBack:
		return fmt.Errorf("cannot commit: %w", ErrClosed)
	}
	tx.state = stateCommitted
	tx.discardScratch()
	return nil
}

// Rollback replays tracked operations in reverse order, restoring each
// backup or deleting each tracked creation. Every restoration is
// attempted even when earlier ones fail; accumulated failures are
// reported as a RollbackError. Idempotent.
func (tx *Transaction) Rollback() error {
	switch tx.state {
	case stateRolledBack:
		return nil
	case stateCommitted:
		return fmt.Errorf("cannot roll back: %w", ErrClosed)
	}
	tx.state = stateRolledBack
	defer tx.discardScratch()

	var failures []Failure
	for i := len(tx.ops) - 1; i >= 0; i-- {
		op := tx.ops[i]
		if err := tx.undo(op); err != nil {
			tx.logger.Error("rollback step failed", "kind", op.kind, "path", op.path, "cause", err)
			failures = append(failures, Failure{Path: op.path, Err: err})
		}
	}

	if len(failures) > 0 {
		return &RollbackError{Failures: failures}
	}
	return nil
}

func (tx *Transaction) undo(op operation) error {
	switch op.kind {
	case opCreate:
		if err := os.RemoveAll(op.path); err != nil {
			return fmt.Errorf("removing created path: %w", err)
		}
		return nil
	case opModify, opDelete:
		return restore(op.backupPath, op.path)
	case opManifestUpdate:
		if err := tx.store.Save(op.snapshot); err != nil {
			return fmt.Errorf("restoring manifest snapshot: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown operation kind %d", op.kind)
}

func (tx *Transaction) discardScratch() {
	if err := os.RemoveAll(tx.scratch); err != nil {
		tx.logger.Warn("failed to remove transaction scratch area", "path", tx.scratch, "cause", err)
	}
}

// Run executes fn inside a transaction scope. A nil return commits; an
// error or panic rolls back before propagating. A rollback failure is
// joined onto the original error so neither is lost.
func Run(store *manifest.Store, logger *log.Logger, fn func(tx *Transaction) error) error {
	tx, err := Begin(store, logger)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// copyFile copies src to dst, preserving the file mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree copies the directory tree at src to dst.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

// restore puts a backup back at its original location, replacing
// whatever is there now.
func restore(backupPath, originalPath string) error {
	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}

	if err := os.RemoveAll(originalPath); err != nil {
		return fmt.Errorf("clearing target: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(originalPath), 0o755); err != nil {
		return fmt.Errorf("recreating parent: %w", err)
	}

	if info.IsDir() {
		return copyTree(backupPath, originalPath)
	}
	return copyFile(backupPath, originalPath)
}
