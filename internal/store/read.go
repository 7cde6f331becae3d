package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/guardvault/internal/ir"
)

const invocationColumns = `id, flow_token, action_uri, args, seq, sender, block_time, manifest_hash, engine_version, ir_version`

const completionColumns = `id, invocation_id, output_case, result, seq`

const signalColumns = `id, completion_id, seq, source, name, args`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadInvocation returns one invocation. It returns sql.ErrNoRows when id
// is unknown.
func (s *Store) ReadInvocation(ctx context.Context, id string) (ir.Invocation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invocationColumns+` FROM invocations WHERE id = ?`, id)
	return scanInvocation(row)
}

// ReadCompletion returns one completion, or sql.ErrNoRows.
func (s *Store) ReadCompletion(ctx context.Context, id string) (ir.Completion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+completionColumns+` FROM completions WHERE id = ?`, id)
	return scanCompletion(row)
}

// ReadCompletionFor returns the completion of an invocation, or
// sql.ErrNoRows if it never completed.
func (s *Store) ReadCompletionFor(ctx context.Context, invocationID string) (ir.Completion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+completionColumns+` FROM completions WHERE invocation_id = ?`, invocationID)
	return scanCompletion(row)
}

// ReadAllInvocations returns the whole journal in replay order.
func (s *Store) ReadAllInvocations(ctx context.Context) ([]ir.Invocation, error) {
	return s.queryInvocations(ctx, `
		SELECT `+invocationColumns+` FROM invocations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadAllCompletions returns every completion in seq order.
func (s *Store) ReadAllCompletions(ctx context.Context) ([]ir.Completion, error) {
	return s.queryCompletions(ctx, `
		SELECT `+completionColumns+` FROM completions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadFlow returns the invocations and completions sharing a flow token.
func (s *Store) ReadFlow(ctx context.Context, flowToken string) ([]ir.Invocation, []ir.Completion, error) {
	invs, err := s.queryInvocations(ctx, `
		SELECT `+invocationColumns+` FROM invocations
		WHERE flow_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, flowToken)
	if err != nil {
		return nil, nil, err
	}
	comps, err := s.queryCompletions(ctx, `
		SELECT c.id, c.invocation_id, c.output_case, c.result, c.seq
		FROM completions c
		JOIN invocations i ON c.invocation_id = i.id
		WHERE i.flow_token = ?
		ORDER BY c.seq ASC, c.id COLLATE BINARY ASC
	`, flowToken)
	if err != nil {
		return nil, nil, err
	}
	return invs, comps, nil
}

// SignalFilter narrows ReadSignals. Zero fields match everything.
type SignalFilter struct {
	FlowToken string
	Name      string
	Source    string
	AfterSeq  int64
}

// ReadSignals returns signals in emission order.
func (s *Store) ReadSignals(ctx context.Context, f SignalFilter) ([]ir.Signal, error) {
	query := `
		SELECT s.id, s.completion_id, s.seq, s.source, s.name, s.args
		FROM signals s
		JOIN completions c ON s.completion_id = c.id
		JOIN invocations i ON c.invocation_id = i.id
		WHERE s.seq > ?`
	args := []any{f.AfterSeq}
	if f.FlowToken != "" {
		query += ` AND i.flow_token = ?`
		args = append(args, f.FlowToken)
	}
	if f.Name != "" {
		query += ` AND s.name = ?`
		args = append(args, f.Name)
	}
	if f.Source != "" {
		query += ` AND s.source = ?`
		args = append(args, f.Source)
	}
	query += ` ORDER BY s.seq ASC, s.id COLLATE BINARY ASC`
	return s.querySignals(ctx, query, args...)
}

// ReadSignalsFor returns the signals of one completion.
func (s *Store) ReadSignalsFor(ctx context.Context, completionID string) ([]ir.Signal, error) {
	return s.querySignals(ctx, `
		SELECT `+signalColumns+` FROM signals
		WHERE completion_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, completionID)
}

// LastSeq returns the highest seq recorded anywhere in the journal, or 0.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM invocations
			UNION ALL SELECT seq FROM completions
			UNION ALL SELECT seq FROM signals
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryInvocations(ctx context.Context, query string, args ...any) ([]ir.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	out := []ir.Invocation{}
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return out, nil
}

func (s *Store) queryCompletions(ctx context.Context, query string, args ...any) ([]ir.Completion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	out := []ir.Completion{}
	for rows.Next() {
		comp, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return out, nil
}

func (s *Store) querySignals(ctx context.Context, query string, args ...any) ([]ir.Signal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := []ir.Signal{}
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return out, nil
}

func scanInvocation(row scanner) (ir.Invocation, error) {
	var inv ir.Invocation
	var actionURI, argsJSON string
	if err := row.Scan(
		&inv.ID, &inv.FlowToken, &actionURI, &argsJSON, &inv.Seq,
		&inv.Sender, &inv.BlockTime, &inv.ManifestHash, &inv.EngineVersion, &inv.IRVersion,
	); err != nil {
		return ir.Invocation{}, err
	}
	inv.ActionURI = ir.ActionURI(actionURI)
	args, err := unmarshalObject(argsJSON)
	if err != nil {
		return ir.Invocation{}, err
	}
	inv.Args = args
	return inv, nil
}

func scanCompletion(row scanner) (ir.Completion, error) {
	var comp ir.Completion
	var resultJSON string
	if err := row.Scan(&comp.ID, &comp.InvocationID, &comp.OutputCase, &resultJSON, &comp.Seq); err != nil {
		return ir.Completion{}, err
	}
	result, err := unmarshalObject(resultJSON)
	if err != nil {
		return ir.Completion{}, err
	}
	comp.Result = result
	return comp, nil
}

func scanSignal(row scanner) (ir.Signal, error) {
	var sig ir.Signal
	var argsJSON string
	if err := row.Scan(&sig.ID, &sig.CompletionID, &sig.Seq, &sig.Source, &sig.Name, &argsJSON); err != nil {
		return ir.Signal{}, err
	}
	args, err := unmarshalArray(argsJSON)
	if err != nil {
		return ir.Signal{}, err
	}
	sig.Args = args
	return sig, nil
}
