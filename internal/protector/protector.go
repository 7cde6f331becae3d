package protector

import (
	"math"
	"sort"
	"sync"

	"github.com/roach88/guardvault/internal/abi"
	"github.com/roach88/guardvault/internal/chain"
)

// InitiatorStatus is the guard state of an owner address.
type InitiatorStatus int

const (
	NoInitiator InitiatorStatus = iota
	InitiatorPending
	InitiatorActive
)

func (s InitiatorStatus) String() string {
	switch s {
	case InitiatorPending:
		return "pending"
	case InitiatorActive:
		return "active"
	default:
		return "none"
	}
}

type initiator struct {
	candidate chain.Address
	status    InitiatorStatus
}

// PendingTransfer is an outstanding guarded transfer request.
type PendingTransfer struct {
	TokenID     chain.TokenID
	To          chain.Address
	Initiator   chain.Address
	RequestedAt int64
	MinDelay    uint64
}

// ReadyAt is the first block time at which the request may complete.
func (p PendingTransfer) ReadyAt() int64 {
	return p.RequestedAt + int64(p.MinDelay)
}

// Protector is a non-fungible token collection guarded by initiators.
//
// All methods are safe for concurrent use. Every mutating method either
// applies fully or returns a *chain.Error without changing state.
type Protector struct {
	mu sync.Mutex

	addr        chain.Address
	name        string
	deployer    chain.Address
	admin       chain.Address
	initialized bool
	impl        Implementation

	owners    map[chain.TokenID]chain.Address
	tenures   map[chain.TokenID]uint64
	balances  map[chain.Address]uint64
	approved  map[chain.TokenID]chain.Address
	operators map[chain.Address]map[chain.Address]bool

	initiators map[chain.Address]*initiator
	pending    map[chain.TokenID]*PendingTransfer
}

// New deploys a protector collection at addr. deployer keeps upgrade
// authority for the lifetime of the contract.
func New(addr chain.Address, name string, deployer chain.Address) *Protector {
	return &Protector{
		addr:       addr,
		name:       name,
		deployer:   deployer,
		impl:       V1,
		owners:     make(map[chain.TokenID]chain.Address),
		tenures:    make(map[chain.TokenID]uint64),
		balances:   make(map[chain.Address]uint64),
		approved:   make(map[chain.TokenID]chain.Address),
		operators:  make(map[chain.Address]map[chain.Address]bool),
		initiators: make(map[chain.Address]*initiator),
		pending:    make(map[chain.TokenID]*PendingTransfer),
	}
}

func (p *Protector) Address() chain.Address  { return p.addr }
func (p *Protector) Name() string            { return p.name }
func (p *Protector) Deployer() chain.Address { return p.deployer }

// Admin returns the address allowed to mint.
func (p *Protector) Admin() chain.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admin
}

// Initialize seeds the admin role. A zero admin makes the sender admin.
// Only the deployer may initialize, and only once.
func (p *Protector) Initialize(tx *chain.Tx, admin chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return chain.Errorf(chain.ErrAlreadyInitialized, "%s already initialized", p.name)
	}
	if tx.Sender != p.deployer {
		return chain.Errorf(chain.ErrNotTheContractDeployer, "%s did not deploy %s", tx.Sender, p.name)
	}
	if admin.IsZero() {
		admin = tx.Sender
	}
	p.admin = admin
	p.initialized = true
	tx.Emit(p.addr, "Initialized", admin)
	return nil
}

// Version returns the active implementation's version.
func (p *Protector) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.impl.Version()
}

// Implementation returns the active implementation.
func (p *Protector) Implementation() Implementation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.impl
}

// UpgradeTo activates impl. Only the deployer may upgrade, and impl must
// serve the guarded-transfer interface.
func (p *Protector) UpgradeTo(tx *chain.Tx, impl Implementation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tx.Sender != p.deployer {
		return chain.Errorf(chain.ErrNotTheContractDeployer, "%s did not deploy %s", tx.Sender, p.name)
	}
	if impl == nil {
		return chain.Errorf(chain.ErrUnknownImplementation, "no implementation given")
	}
	if impl.ID() != InterfaceID {
		return chain.Errorf(chain.ErrIncompatibleImplementation,
			"implementation %s has id %s, want %s", impl.Name(), impl.ID(), InterfaceID).
			With("implementation", impl.Name())
	}
	p.impl = impl
	tx.Emit(p.addr, "Upgraded", impl.Version(), impl.ID().Hex())
	return nil
}

// Mint creates token id for to. Only the admin may mint.
func (p *Protector) Mint(tx *chain.Tx, to chain.Address, id chain.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || tx.Sender != p.admin {
		return chain.Errorf(chain.ErrNotTheAdmin, "%s may not mint %s", tx.Sender, p.name)
	}
	if id == 0 {
		return chain.Errorf(chain.ErrInvalidTokenID, "token ids start at 1")
	}
	if to.IsZero() {
		return chain.Errorf(chain.ErrInvalidRecipient, "mint to the zero address")
	}
	if _, ok := p.owners[id]; ok {
		return chain.Errorf(chain.ErrTokenExists, "%s #%d already minted", p.name, id)
	}
	p.owners[id] = to
	p.balances[to]++
	tx.Emit(p.addr, "Transfer", chain.ZeroAddress, to, id)
	return nil
}

// Exists reports whether id has been minted.
func (p *Protector) Exists(id chain.TokenID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.owners[id]
	return ok
}

// OwnerOf returns the current holder of id.
func (p *Protector) OwnerOf(id chain.TokenID) (chain.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ownerOf(id)
}

// Tenure returns the holder of id together with a counter that grows each
// time id changes hands. A holder that gets id back starts a new tenure.
func (p *Protector) Tenure(id chain.TokenID) (chain.Address, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	owner, err := p.ownerOf(id)
	if err != nil {
		return chain.ZeroAddress, 0, err
	}
	return owner, p.tenures[id], nil
}

func (p *Protector) ownerOf(id chain.TokenID) (chain.Address, error) {
	owner, ok := p.owners[id]
	if !ok {
		return chain.ZeroAddress, chain.Errorf(chain.ErrTokenNotFound, "%s #%d does not exist", p.name, id)
	}
	return owner, nil
}

// BalanceOf counts the tokens held by owner.
func (p *Protector) BalanceOf(owner chain.Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[owner]
}

// Approve lets to move id once.
func (p *Protector) Approve(tx *chain.Tx, to chain.Address, id chain.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, err := p.ownerOf(id)
	if err != nil {
		return err
	}
	if tx.Sender != owner && !p.operators[owner][tx.Sender] {
		return chain.Errorf(chain.ErrNotAuthorized, "%s may not approve %s #%d", tx.Sender, p.name, id)
	}
	p.approved[id] = to
	tx.Emit(p.addr, "Approval", owner, to, id)
	return nil
}

// GetApproved returns the single-token approval for id.
func (p *Protector) GetApproved(id chain.TokenID) chain.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.approved[id]
}

// SetApprovalForAll grants or revokes operator rights over the sender's tokens.
func (p *Protector) SetApprovalForAll(tx *chain.Tx, operator chain.Address, approved bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if operator.IsZero() || operator == tx.Sender {
		return chain.Errorf(chain.ErrInvalidAddress, "invalid operator %s", operator)
	}
	ops := p.operators[tx.Sender]
	if ops == nil {
		ops = make(map[chain.Address]bool)
		p.operators[tx.Sender] = ops
	}
	ops[operator] = approved
	tx.Emit(p.addr, "ApprovalForAll", tx.Sender, operator, approved)
	return nil
}

// IsApprovedForAll reports operator rights.
func (p *Protector) IsApprovedForAll(owner, operator chain.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.operators[owner][operator]
}

// TransferFrom is the direct transfer path. It is refused for any token
// whose owner has an active initiator, whoever the caller is.
func (p *Protector) TransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, err := p.ownerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s does not own %s #%d", from, p.name, id)
	}
	if p.guarded(owner) {
		return chain.Errorf(chain.ErrTransferNotPermitted,
			"%s has an active initiator; use startTransfer", owner)
	}
	if to.IsZero() {
		return chain.Errorf(chain.ErrInvalidRecipient, "transfer to the zero address")
	}
	sender := tx.Sender
	if sender != owner && p.approved[id] != sender && !p.operators[owner][sender] {
		return chain.Errorf(chain.ErrNotAuthorized, "%s is not approved for %s #%d", sender, p.name, id)
	}
	p.move(tx, owner, to, id)
	return nil
}

// SafeTransferFrom is TransferFrom under its ERC-721 name.
func (p *Protector) SafeTransferFrom(tx *chain.Tx, from, to chain.Address, id chain.TokenID) error {
	return p.TransferFrom(tx, from, to, id)
}

// move must be called with p.mu held and all checks done.
func (p *Protector) move(tx *chain.Tx, from, to chain.Address, id chain.TokenID) {
	delete(p.approved, id)
	delete(p.pending, id)
	p.balances[from]--
	if p.balances[from] == 0 {
		delete(p.balances, from)
	}
	p.balances[to]++
	p.owners[id] = to
	p.tenures[id]++
	tx.Emit(p.addr, "Transfer", from, to, id)
}

func (p *Protector) guarded(owner chain.Address) bool {
	st := p.initiators[owner]
	return st != nil && st.status == InitiatorActive
}

// InitiatorOf returns the initiator registered for owner and its status.
func (p *Protector) InitiatorOf(owner chain.Address) (chain.Address, InitiatorStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.initiators[owner]
	if st == nil {
		return chain.ZeroAddress, NoInitiator
	}
	return st.candidate, st.status
}

// SetInitiator proposes candidate as the sender's initiator.
func (p *Protector) SetInitiator(tx *chain.Tx, candidate chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := tx.Sender
	if p.balances[owner] == 0 {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s owns no %s token", owner, p.name)
	}
	if candidate.IsZero() || candidate == owner {
		return chain.Errorf(chain.ErrInvalidInitiator, "invalid initiator %s", candidate)
	}
	if st := p.initiators[owner]; st != nil {
		return chain.Errorf(chain.ErrInitiatorAlreadySet,
			"%s already has a %s initiator %s", owner, st.status, st.candidate)
	}
	p.initiators[owner] = &initiator{candidate: candidate, status: InitiatorPending}
	tx.Emit(p.addr, "InitiatorProposed", owner, candidate, true)
	return nil
}

// ConfirmInitiator accepts a pending proposal made by owner. The sender
// must be the proposed candidate.
func (p *Protector) ConfirmInitiator(tx *chain.Tx, owner chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.initiators[owner]
	if st == nil || st.status != InitiatorPending || st.candidate != tx.Sender {
		return chain.Errorf(chain.ErrNoPendingInitiatorProposal,
			"no pending proposal from %s to %s", owner, tx.Sender)
	}
	st.status = InitiatorActive
	tx.Emit(p.addr, "InitiatorConfirmed", owner, st.candidate, true)
	return nil
}

// RevokeInitiator clears owner's initiator state.
//
// A pending proposal may be withdrawn by owner or declined by the
// candidate. An active initiator may only be removed by the initiator;
// doing so cancels every pending transfer of owner's tokens.
func (p *Protector) RevokeInitiator(tx *chain.Tx, owner chain.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.initiators[owner]
	if st == nil {
		return chain.Errorf(chain.ErrNoActiveInitiator, "%s has no initiator", owner)
	}
	switch st.status {
	case InitiatorPending:
		if tx.Sender != owner && tx.Sender != st.candidate {
			return chain.Errorf(chain.ErrNotAuthorized, "%s may not withdraw the proposal of %s", tx.Sender, owner)
		}
	case InitiatorActive:
		if tx.Sender != st.candidate {
			return chain.Errorf(chain.ErrNotTheInitiator,
				"only the initiator %s may revoke an active guard", st.candidate)
		}
		var dropped []chain.TokenID
		for id := range p.pending {
			if p.owners[id] == owner {
				dropped = append(dropped, id)
			}
		}
		sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
		for _, id := range dropped {
			delete(p.pending, id)
			tx.Emit(p.addr, "TransferCancelled", tx.Sender, id)
		}
	}
	delete(p.initiators, owner)
	tx.Emit(p.addr, "InitiatorRevoked", owner, st.candidate)
	return nil
}

// StartTransfer requests a guarded transfer of id to to. The sender must be
// the active initiator of id's owner. The transfer can complete minDelay
// seconds after the current block time.
func (p *Protector) StartTransfer(tx *chain.Tx, id chain.TokenID, to chain.Address, minDelay uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, err := p.ownerOf(id)
	if err != nil {
		return err
	}
	st := p.initiators[owner]
	if st == nil || st.status != InitiatorActive {
		return chain.Errorf(chain.ErrTransferNotPermitted, "%s has no active initiator", owner)
	}
	if tx.Sender != st.candidate {
		return chain.Errorf(chain.ErrNotTheInitiator, "%s is not the initiator of %s", tx.Sender, owner)
	}
	if to.IsZero() || to == owner {
		return chain.Errorf(chain.ErrInvalidRecipient, "invalid recipient %s", to)
	}
	if _, ok := p.pending[id]; ok {
		return chain.Errorf(chain.ErrTransferAlreadyPending, "%s #%d already has a pending transfer", p.name, id)
	}
	if minDelay > uint64(math.MaxInt64-tx.Time) {
		return chain.Errorf(chain.ErrInvalidDelay, "delay %d overflows the block clock", minDelay)
	}
	p.pending[id] = &PendingTransfer{
		TokenID:     id,
		To:          to,
		Initiator:   tx.Sender,
		RequestedAt: tx.Time,
		MinDelay:    minDelay,
	}
	tx.Emit(p.addr, "TransferStarted", tx.Sender, id, to)
	return nil
}

// PendingTransferOf returns the outstanding request for id.
func (p *Protector) PendingTransferOf(id chain.TokenID) (PendingTransfer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.pending[id]
	if !ok {
		return PendingTransfer{}, false
	}
	return *req, true
}

// CompleteTransfer executes the pending request for id once its delay has
// elapsed. Only the current owner may complete.
func (p *Protector) CompleteTransfer(tx *chain.Tx, id chain.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, err := p.ownerOf(id)
	if err != nil {
		return err
	}
	if tx.Sender != owner {
		return chain.Errorf(chain.ErrNotTokenOwner, "%s does not own %s #%d", tx.Sender, p.name, id)
	}
	req, ok := p.pending[id]
	if !ok {
		return chain.Errorf(chain.ErrNoPendingTransfer, "%s #%d has no pending transfer", p.name, id)
	}
	if tx.Time < req.ReadyAt() {
		return chain.Errorf(chain.ErrTransferNotAllowedYet,
			"%s #%d can complete at %d, now %d", p.name, id, req.ReadyAt(), tx.Time)
	}
	p.move(tx, owner, req.To, id)
	return nil
}

// CancelTransfer drops the pending request for id. The owner or the
// requesting initiator may cancel.
func (p *Protector) CancelTransfer(tx *chain.Tx, id chain.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner, err := p.ownerOf(id)
	if err != nil {
		return err
	}
	req, ok := p.pending[id]
	if !ok {
		return chain.Errorf(chain.ErrNoPendingTransfer, "%s #%d has no pending transfer", p.name, id)
	}
	if tx.Sender != owner && tx.Sender != req.Initiator {
		return chain.Errorf(chain.ErrNotAuthorized, "%s may not cancel the transfer of %s #%d", tx.Sender, p.name, id)
	}
	delete(p.pending, id)
	tx.Emit(p.addr, "TransferCancelled", tx.Sender, id)
	return nil
}

// SupportsInterface reports ERC-165, ERC-721 and the active implementation's id.
func (p *Protector) SupportsInterface(id abi.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return id == abi.ERC165 || id == abi.ERC721 || id == p.impl.ID()
}
