package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/protector"
	"github.com/roach88/guardvault/internal/vault"
)

// handler executes a bound call. A nil result is journaled as {}.
type handler func(w *World, tx *chain.Tx) (ir.IRObject, error)

type action struct {
	sig  ir.ActionSig
	bind func(r *argReader) handler
}

// argReader decodes IR args into protocol types, keeping the first error.
// CheckArgs has already enforced presence and types of required args, so
// absent optional args read as zero values.
type argReader struct {
	args ir.IRObject
	err  error
}

func (r *argReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *argReader) addr(key string) chain.Address {
	if _, ok := r.args[key]; !ok {
		return chain.ZeroAddress
	}
	s, err := r.args.GetString(key)
	if err != nil {
		r.fail(err)
		return chain.ZeroAddress
	}
	a, err := chain.ParseAddress(s)
	if err != nil {
		r.fail(fmt.Errorf("%q: %w", key, err))
		return chain.ZeroAddress
	}
	return a
}

func (r *argReader) uint(key string) uint64 {
	if _, ok := r.args[key]; !ok {
		return 0
	}
	n, err := r.args.GetUint(key)
	if err != nil {
		r.fail(err)
	}
	return n
}

func (r *argReader) id(key string) chain.TokenID  { return chain.TokenID(r.uint(key)) }
func (r *argReader) amount(key string) chain.Amount { return chain.Amount(r.uint(key)) }

func (r *argReader) str(key string) string {
	if _, ok := r.args[key]; !ok {
		return ""
	}
	s, err := r.args.GetString(key)
	if err != nil {
		r.fail(err)
	}
	return s
}

func (r *argReader) flag(key string) bool {
	b, err := r.args.GetBool(key, false)
	if err != nil {
		r.fail(err)
	}
	return b
}

func (r *argReader) addrs(key string) []chain.Address {
	arr, err := r.args.GetArray(key)
	if err != nil {
		r.fail(err)
		return nil
	}
	out := make([]chain.Address, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(ir.IRString)
		if !ok {
			r.fail(fmt.Errorf("%s[%d] is %s, want string", key, i, ir.TypeName(v)))
			return nil
		}
		a, err := chain.ParseAddress(string(s))
		if err != nil {
			r.fail(fmt.Errorf("%s[%d]: %w", key, i, err))
			return nil
		}
		out = append(out, a)
	}
	return out
}

func (r *argReader) flags(key string) []bool {
	arr, err := r.args.GetArray(key)
	if err != nil {
		r.fail(err)
		return nil
	}
	out := make([]bool, 0, len(arr))
	for i, v := range arr {
		b, ok := v.(ir.IRBool)
		if !ok {
			r.fail(fmt.Errorf("%s[%d] is %s, want bool", key, i, ir.TypeName(v)))
			return nil
		}
		out = append(out, bool(b))
	}
	return out
}

func req(name, typ string) ir.NamedArg { return ir.NamedArg{Name: name, Type: typ} }
func opt(name, typ string) ir.NamedArg { return ir.NamedArg{Name: name, Type: typ, Optional: true} }

func outputs(codes ...chain.ErrorCode) []string {
	out := make([]string, 0, len(codes)+1)
	out = append(out, ir.SuccessCase)
	for _, c := range codes {
		out = append(out, string(c))
	}
	return out
}

func done(err error) (ir.IRObject, error) { return nil, err }

var depositCodes = []chain.ErrorCode{
	chain.ErrTokenNotFound, chain.ErrVaultNotRegistered, chain.ErrAccessDenied,
	chain.ErrInvalidAmount, chain.ErrUnsupportedAsset, chain.ErrAssetAlreadyDeposited,
	chain.ErrAmountOverflow, chain.ErrAssetTransferFailed,
}

var withdrawCodes = []chain.ErrorCode{
	chain.ErrTokenNotFound, chain.ErrAccessDenied, chain.ErrInvalidAmount,
	chain.ErrUnsupportedAsset, chain.ErrInsufficientCustodyBalance, chain.ErrAssetTransferFailed,
}

var assetCodes = []chain.ErrorCode{
	chain.ErrUnsupportedAsset, chain.ErrNotAuthorized, chain.ErrInvalidAddress,
	chain.ErrInvalidRecipient, chain.ErrTokenExists, chain.ErrAmountOverflow,
	chain.ErrInvalidAmount, chain.ErrInsufficientBalance,
}

// actionTable lists every callable action. Contract names in URIs are
// roles, not deployment names: a world has one protector and one vault.
var actionTable = []action{
	// Protector

	{
		sig: ir.ActionSig{URI: "Protector.initialize", Args: []ir.NamedArg{opt("admin", "string")},
			Outputs: outputs(chain.ErrAlreadyInitialized, chain.ErrNotTheContractDeployer)},
		bind: func(r *argReader) handler {
			admin := r.addr("admin")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.Initialize(tx, admin))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.mint", Args: []ir.NamedArg{req("to", "string"), req("id", "int")},
			Outputs: outputs(chain.ErrNotTheAdmin, chain.ErrInvalidTokenID, chain.ErrInvalidRecipient, chain.ErrTokenExists)},
		bind: func(r *argReader) handler {
			to, id := r.addr("to"), r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.Mint(tx, to, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.approve", Args: []ir.NamedArg{req("to", "string"), req("id", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNotAuthorized, chain.ErrInvalidAddress)},
		bind: func(r *argReader) handler {
			to, id := r.addr("to"), r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.Approve(tx, to, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.setApprovalForAll", Args: []ir.NamedArg{req("operator", "string"), req("approved", "bool")},
			Outputs: outputs(chain.ErrInvalidAddress)},
		bind: func(r *argReader) handler {
			op, approved := r.addr("operator"), r.flag("approved")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.SetApprovalForAll(tx, op, approved))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.transferFrom", Args: []ir.NamedArg{req("from", "string"), req("to", "string"), req("id", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNotTokenOwner, chain.ErrTransferNotPermitted,
				chain.ErrInvalidRecipient, chain.ErrNotAuthorized)},
		bind: func(r *argReader) handler {
			from, to, id := r.addr("from"), r.addr("to"), r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.TransferFrom(tx, from, to, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.setInitiator", Args: []ir.NamedArg{req("initiator", "string")},
			Outputs: outputs(chain.ErrNotTokenOwner, chain.ErrInvalidInitiator, chain.ErrInitiatorAlreadySet)},
		bind: func(r *argReader) handler {
			cand := r.addr("initiator")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.SetInitiator(tx, cand))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.confirmInitiator", Args: []ir.NamedArg{req("owner", "string")},
			Outputs: outputs(chain.ErrNoPendingInitiatorProposal)},
		bind: func(r *argReader) handler {
			owner := r.addr("owner")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.ConfirmInitiator(tx, owner))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.revokeInitiator", Args: []ir.NamedArg{req("owner", "string")},
			Outputs: outputs(chain.ErrNoActiveInitiator, chain.ErrNotAuthorized, chain.ErrNotTheInitiator)},
		bind: func(r *argReader) handler {
			owner := r.addr("owner")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.RevokeInitiator(tx, owner))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.startTransfer", Args: []ir.NamedArg{req("id", "int"), req("to", "string"), opt("delay", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrTransferNotPermitted, chain.ErrNotTheInitiator,
				chain.ErrInvalidRecipient, chain.ErrTransferAlreadyPending, chain.ErrInvalidDelay)},
		bind: func(r *argReader) handler {
			id, to, delay := r.id("id"), r.addr("to"), r.uint("delay")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				if err := w.Protector.StartTransfer(tx, id, to, delay); err != nil {
					return nil, err
				}
				p, _ := w.Protector.PendingTransferOf(id)
				return ir.IRObject{"ready_at": ir.IRInt(p.ReadyAt())}, nil
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.completeTransfer", Args: []ir.NamedArg{req("id", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNotTokenOwner, chain.ErrNoPendingTransfer, chain.ErrTransferNotAllowedYet)},
		bind: func(r *argReader) handler {
			id := r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.CompleteTransfer(tx, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.cancelTransfer", Args: []ir.NamedArg{req("id", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNoPendingTransfer, chain.ErrNotAuthorized)},
		bind: func(r *argReader) handler {
			id := r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Protector.CancelTransfer(tx, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Protector.upgradeTo", Args: []ir.NamedArg{req("implementation", "string")},
			Outputs: outputs(chain.ErrNotTheContractDeployer, chain.ErrUnknownImplementation, chain.ErrIncompatibleImplementation)},
		bind: func(r *argReader) handler {
			name := r.str("implementation")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				impl, _ := protector.LookupImplementation(name)
				if err := w.Protector.UpgradeTo(tx, impl); err != nil {
					return nil, err
				}
				return ir.IRObject{"version": ir.IRString(w.Protector.Version())}, nil
			}
		},
	},

	// Vault

	{
		sig: ir.ActionSig{URI: "Vault.depositNFT", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), req("asset_id", "int")},
			Outputs: outputs(depositCodes...)},
		bind: func(r *argReader) handler {
			id, contract, assetID := r.id("id"), r.addr("asset"), r.id("asset_id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.DepositNFT(tx, id, contract, assetID))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.depositFT", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), req("amount", "int")},
			Outputs: outputs(depositCodes...)},
		bind: func(r *argReader) handler {
			id, contract, amount := r.id("id"), r.addr("asset"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.DepositFT(tx, id, contract, amount))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.depositAsset", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), opt("asset_id", "int"), req("amount", "int")},
			Outputs: outputs(depositCodes...)},
		bind: func(r *argReader) handler {
			id, contract, assetID, amount := r.id("id"), r.addr("asset"), r.id("asset_id"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.DepositAsset(tx, id, contract, assetID, amount))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.withdrawNFT", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), req("asset_id", "int")},
			Outputs: outputs(withdrawCodes...)},
		bind: func(r *argReader) handler {
			id, contract, assetID := r.id("id"), r.addr("asset"), r.id("asset_id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.WithdrawNFT(tx, id, contract, assetID))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.withdrawFT", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), req("amount", "int")},
			Outputs: outputs(withdrawCodes...)},
		bind: func(r *argReader) handler {
			id, contract, amount := r.id("id"), r.addr("asset"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.WithdrawFT(tx, id, contract, amount))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.withdrawAsset", Args: []ir.NamedArg{req("id", "int"), req("asset", "string"), opt("asset_id", "int"), req("amount", "int")},
			Outputs: outputs(withdrawCodes...)},
		bind: func(r *argReader) handler {
			id, contract, assetID, amount := r.id("id"), r.addr("asset"), r.id("asset_id"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.WithdrawAsset(tx, id, contract, assetID, amount))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.transferAsset",
			Args: []ir.NamedArg{req("from", "int"), req("to", "int"), req("asset", "string"), opt("asset_id", "int"), req("amount", "int")},
			Outputs: outputs(chain.ErrAccessDenied, chain.ErrTokenNotFound, chain.ErrInvalidRecipient,
				chain.ErrInvalidAmount, chain.ErrInsufficientCustodyBalance, chain.ErrAmountOverflow)},
		bind: func(r *argReader) handler {
			from, to := r.id("from"), r.id("to")
			contract, assetID, amount := r.addr("asset"), r.id("asset_id"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.TransferAsset(tx, from, to, contract, assetID, amount))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.configure",
			Args: []ir.NamedArg{req("id", "int"), opt("allow_all", "bool"), opt("allow_with_confirmation", "bool"),
				opt("allow_list", "array"), opt("allow_list_status", "array")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNotTokenOwner, chain.ErrInvalidPolicy)},
		bind: func(r *argReader) handler {
			id := r.id("id")
			allowAll, withConfirmation := r.flag("allow_all"), r.flag("allow_with_confirmation")
			list, status := r.addrs("allow_list"), r.flags("allow_list_status")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				p, err := vault.NewPolicy(allowAll, withConfirmation, list, status)
				if err != nil {
					return nil, err
				}
				return done(w.Vault.Configure(tx, id, p))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.requestAccess", Args: []ir.NamedArg{req("id", "int")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrAccessDenied, chain.ErrInvalidAddress)},
		bind: func(r *argReader) handler {
			id := r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.RequestAccess(tx, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.confirmAccess", Args: []ir.NamedArg{req("id", "int"), req("requester", "string")},
			Outputs: outputs(chain.ErrTokenNotFound, chain.ErrNotTokenOwner, chain.ErrNoPendingAccessRequest)},
		bind: func(r *argReader) handler {
			id, requester := r.id("id"), r.addr("requester")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.ConfirmAccess(tx, id, requester))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.transferFrom", Args: []ir.NamedArg{req("from", "string"), req("to", "string"), req("id", "int")},
			Outputs: outputs(chain.ErrSubordinateTransferForbidden)},
		bind: func(r *argReader) handler {
			from, to, id := r.addr("from"), r.addr("to"), r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.TransferFrom(tx, from, to, id))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Vault.approve", Args: []ir.NamedArg{req("to", "string"), req("id", "int")},
			Outputs: outputs(chain.ErrSubordinateTransferForbidden)},
		bind: func(r *argReader) handler {
			to, id := r.addr("to"), r.id("id")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				return done(w.Vault.Approve(tx, to, id))
			}
		},
	},

	// External asset contracts

	{
		sig: ir.ActionSig{URI: "Asset.mint", Args: []ir.NamedArg{req("asset", "string"), req("to", "string"), opt("id", "int"), opt("amount", "int")},
			Outputs: outputs(assetCodes...)},
		bind: func(r *argReader) handler {
			contract, to, id, amount := r.addr("asset"), r.addr("to"), r.id("id"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				c, err := lookupAsset(w, contract)
				if err != nil {
					return nil, err
				}
				switch c := c.(type) {
				case *asset.NFT:
					return done(c.Mint(tx, to, id))
				case *asset.Token:
					return done(c.Mint(tx, to, amount))
				case *asset.Multi:
					return done(c.Mint(tx, to, id, amount))
				}
				return nil, chain.Errorf(chain.ErrUnsupportedAsset, "%s cannot mint", contract)
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Asset.approve", Args: []ir.NamedArg{req("asset", "string"), req("spender", "string"), opt("id", "int"), opt("amount", "int")},
			Outputs: outputs(assetCodes...)},
		bind: func(r *argReader) handler {
			contract, spender, id, amount := r.addr("asset"), r.addr("spender"), r.id("id"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				c, err := lookupAsset(w, contract)
				if err != nil {
					return nil, err
				}
				switch c := c.(type) {
				case *asset.NFT:
					return done(c.Approve(tx, spender, id))
				case *asset.Token:
					return done(c.Approve(tx, spender, amount))
				}
				return nil, chain.Errorf(chain.ErrUnsupportedAsset, "%s has no single approvals", contract)
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Asset.setApprovalForAll", Args: []ir.NamedArg{req("asset", "string"), req("operator", "string"), req("approved", "bool")},
			Outputs: outputs(assetCodes...)},
		bind: func(r *argReader) handler {
			contract, op, approved := r.addr("asset"), r.addr("operator"), r.flag("approved")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				c, err := lookupAsset(w, contract)
				if err != nil {
					return nil, err
				}
				switch c := c.(type) {
				case *asset.NFT:
					return done(c.SetApprovalForAll(tx, op, approved))
				case *asset.Multi:
					return done(c.SetApprovalForAll(tx, op, approved))
				}
				return nil, chain.Errorf(chain.ErrUnsupportedAsset, "%s has no operators", contract)
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Asset.transfer", Args: []ir.NamedArg{req("asset", "string"), req("to", "string"), req("amount", "int")},
			Outputs: outputs(assetCodes...)},
		bind: func(r *argReader) handler {
			contract, to, amount := r.addr("asset"), r.addr("to"), r.amount("amount")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				c, err := lookupAsset(w, contract)
				if err != nil {
					return nil, err
				}
				t, ok := c.(*asset.Token)
				if !ok {
					return nil, chain.Errorf(chain.ErrUnsupportedAsset, "%s is not fungible", contract)
				}
				return done(t.Transfer(tx, to, amount))
			}
		},
	},

	// Registry

	{
		sig: ir.ActionSig{URI: "Registry.registerProtected", Args: []ir.NamedArg{req("vault", "string")},
			Outputs: outputs(chain.ErrNotAuthorized, chain.ErrInvalidAddress, chain.ErrAlreadyRegistered)},
		bind: func(r *argReader) handler {
			v := r.addr("vault")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				if w.Registry == nil {
					return nil, chain.Errorf(chain.ErrNotAuthorized, "no registry deployed")
				}
				return done(w.Registry.RegisterProtected(tx, v))
			}
		},
	},
	{
		sig: ir.ActionSig{URI: "Registry.registerAsset", Args: []ir.NamedArg{req("asset", "string"), req("kind", "string")},
			Outputs: outputs(chain.ErrNotAuthorized, chain.ErrInvalidAddress, chain.ErrUnsupportedAsset)},
		bind: func(r *argReader) handler {
			contract, kindName := r.addr("asset"), r.str("kind")
			return func(w *World, tx *chain.Tx) (ir.IRObject, error) {
				if w.Registry == nil {
					return nil, chain.Errorf(chain.ErrNotAuthorized, "no registry deployed")
				}
				kind, err := asset.ParseKind(kindName)
				if err != nil {
					return nil, chain.Wrap(chain.ErrUnsupportedAsset, err, "register asset")
				}
				return done(w.Registry.RegisterAsset(tx, contract, kind))
			}
		},
	},
}

var actionIndex = func() map[ir.ActionURI]action {
	m := make(map[ir.ActionURI]action, len(actionTable))
	for _, a := range actionTable {
		m[a.sig.URI] = a
	}
	return m
}()

func lookupAsset(w *World, contract chain.Address) (asset.Contract, error) {
	if w.Assets != nil {
		if c, ok := w.Assets.Get(contract); ok {
			return c, nil
		}
	}
	return nil, chain.Errorf(chain.ErrUnsupportedAsset, "no asset contract at %s", contract)
}

// Actions returns the signatures of every callable action, sorted by URI.
func Actions() []ir.ActionSig {
	sigs := make([]ir.ActionSig, 0, len(actionTable))
	for _, a := range actionTable {
		sigs = append(sigs, a.sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].URI < sigs[j].URI })
	return sigs
}

// LookupAction returns the signature of uri.
func LookupAction(uri ir.ActionURI) (ir.ActionSig, bool) {
	a, ok := actionIndex[uri]
	return a.sig, ok
}

// bindCall validates args against the action signature and binds them.
func bindCall(uri ir.ActionURI, args ir.IRObject) (handler, error) {
	a, ok := actionIndex[uri]
	if !ok {
		return nil, NewUnknownActionError(string(uri))
	}
	if err := a.sig.CheckArgs(args); err != nil {
		return nil, NewInvalidArgsError(string(uri), err)
	}
	r := &argReader{args: args}
	h := a.bind(r)
	if r.err != nil {
		return nil, NewInvalidArgsError(string(uri), r.err)
	}
	return h, nil
}
