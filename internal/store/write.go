package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/guardvault/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteInvocation records a call. Writing the same id twice is a no-op.
func (s *Store) WriteInvocation(ctx context.Context, inv ir.Invocation) error {
	argsJSON, err := marshalObject(inv.Args)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(id, flow_token, action_uri, args, seq, sender, block_time, manifest_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		inv.ID,
		inv.FlowToken,
		string(inv.ActionURI),
		argsJSON,
		inv.Seq,
		inv.Sender,
		inv.BlockTime,
		inv.ManifestHash,
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}

// WriteCompletion records an outcome without signals.
func (s *Store) WriteCompletion(ctx context.Context, comp ir.Completion) error {
	return writeCompletion(ctx, s.db, comp)
}

// WriteOutcome records a completion and the signals it emitted in one
// transaction. Either all rows land or none do.
func (s *Store) WriteOutcome(ctx context.Context, comp ir.Completion, signals []ir.Signal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write outcome: begin: %w", err)
	}
	defer tx.Rollback()

	if err := writeCompletion(ctx, tx, comp); err != nil {
		return err
	}
	for _, sig := range signals {
		if sig.CompletionID != comp.ID {
			return fmt.Errorf("write outcome: signal %s belongs to completion %s, not %s", sig.ID, sig.CompletionID, comp.ID)
		}
		if err := writeSignal(ctx, tx, sig); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write outcome: commit: %w", err)
	}
	return nil
}

// writeCompletion ignores both a repeated completion id and a second
// completion for the same invocation.
func writeCompletion(ctx context.Context, db execer, comp ir.Completion) error {
	resultJSON, err := marshalObject(comp.Result)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO completions
		(id, invocation_id, output_case, result, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		comp.ID,
		comp.InvocationID,
		comp.OutputCase,
		resultJSON,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

func writeSignal(ctx context.Context, db execer, sig ir.Signal) error {
	argsJSON, err := marshalArray(sig.Args)
	if err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO signals
		(id, completion_id, seq, source, name, args)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sig.ID,
		sig.CompletionID,
		sig.Seq,
		sig.Source,
		sig.Name,
		argsJSON,
	)
	if err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	return nil
}
