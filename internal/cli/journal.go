package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/roach88/guardvault/internal/engine"
	"github.com/roach88/guardvault/internal/manifest"
	"github.com/roach88/guardvault/internal/store"
)

// journal is an opened store together with the world rebuilt from it.
type journal struct {
	store    *store.Store
	manifest *manifest.Manifest
	world    *engine.World
	report   *engine.Report
}

func (j *journal) Close() error {
	return j.store.Close()
}

// loadManifest loads and deploys a manifest. A missing file is a command
// error; a manifest that does not validate or deploy is a failure.
func loadManifest(path string) (*manifest.Manifest, *engine.World, error) {
	m, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, WrapExitError(ExitCommandError, "manifest not found", err)
		}
		return nil, nil, WrapExitError(ExitFailure, "invalid manifest", err)
	}
	w, err := m.Build()
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "failed to deploy manifest", err)
	}
	return m, w, nil
}

// openJournal opens the journal at dbPath, deploys the manifest and
// replays every journaled call into the fresh world. The caller decides
// what a non-empty report.Mismatches means.
func openJournal(ctx context.Context, dbPath, manifestPath string) (*journal, error) {
	m, w, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	report, err := engine.Replay(ctx, st, w)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	return &journal{store: st, manifest: m, world: w, report: report}, nil
}

// lastBlockTime returns the newest journaled block time, or the genesis
// time for an empty journal.
func (j *journal) lastBlockTime() int64 {
	return max(j.manifest.Deployment.GenesisTime, j.report.LastBlockTime)
}
