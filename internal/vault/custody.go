package vault

import (
	"github.com/roach88/guardvault/internal/asset"
	"github.com/roach88/guardvault/internal/chain"
)

// DepositNFT pulls assetID of an NFT contract from the caller into vault id.
// The caller must have approved the vault on the asset contract.
func (v *Vault) DepositNFT(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID) error {
	return v.deposit(tx, id, contract, assetID, 1, asset.KindNFT)
}

// DepositFT pulls amount fungible tokens from the caller into vault id.
func (v *Vault) DepositFT(tx *chain.Tx, id chain.TokenID, contract chain.Address, amount chain.Amount) error {
	return v.deposit(tx, id, contract, FungibleID, amount, asset.KindFungible)
}

// DepositAsset deposits any supported asset. The kind comes from the
// registry, or from probing the contract when the registry has no record.
// For fungible contracts assetID is ignored.
func (v *Vault) DepositAsset(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID, amount chain.Amount) error {
	return v.deposit(tx, id, contract, assetID, amount, asset.KindUnknown)
}

func (v *Vault) deposit(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID, amount chain.Amount, want asset.Kind) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.authorize(tx, id, true); err != nil {
		return err
	}
	if amount == 0 {
		return chain.Errorf(chain.ErrInvalidAmount, "deposit amount must be positive")
	}
	c, kind, err := v.kindOf(contract)
	if err != nil {
		return err
	}
	if want != asset.KindUnknown && kind != want {
		return chain.Errorf(chain.ErrUnsupportedAsset, "%s is %s, not %s", contract, kind, want)
	}
	if kind == asset.KindFungible {
		assetID = FungibleID
	}
	key := Key{Contract: contract, ID: assetID}

	switch kind {
	case asset.KindNFT:
		if amount != 1 {
			return chain.Errorf(chain.ErrInvalidAmount, "nft deposits move exactly one unit, got %d", amount)
		}
		if v.ledger.amount(id, key) > 0 {
			return chain.Errorf(chain.ErrAssetAlreadyDeposited, "%s #%d already held by vault %d", contract, assetID, id)
		}
	default:
		if !v.ledger.canCredit(id, key, amount) {
			return chain.Errorf(chain.ErrAmountOverflow, "vault %d balance of %s would overflow", id, contract)
		}
	}

	pull := tx.As(v.addr)
	switch kind {
	case asset.KindNFT:
		err = c.(asset.NonFungible).SafeTransferFrom(pull, tx.Sender, v.addr, assetID)
	case asset.KindFungible:
		err = c.(asset.Fungible).TransferFrom(pull, tx.Sender, v.addr, amount)
	case asset.KindMulti:
		err = c.(asset.MultiToken).SafeTransferFrom(pull, tx.Sender, v.addr, assetID, amount)
	}
	if err != nil {
		return pullFailed(err, contract)
	}

	v.ledger.credit(id, key, amount)
	tx.Emit(v.addr, "Deposit", id, contract, assetID, amount)
	return nil
}

// WithdrawNFT releases assetID of an NFT contract from vault id to the caller.
func (v *Vault) WithdrawNFT(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID) error {
	return v.withdraw(tx, id, contract, assetID, 1, asset.KindNFT)
}

// WithdrawFT releases amount fungible tokens from vault id to the caller.
func (v *Vault) WithdrawFT(tx *chain.Tx, id chain.TokenID, contract chain.Address, amount chain.Amount) error {
	return v.withdraw(tx, id, contract, FungibleID, amount, asset.KindFungible)
}

// WithdrawAsset is the kind-dispatching counterpart of DepositAsset.
func (v *Vault) WithdrawAsset(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID, amount chain.Amount) error {
	return v.withdraw(tx, id, contract, assetID, amount, asset.KindUnknown)
}

func (v *Vault) withdraw(tx *chain.Tx, id chain.TokenID, contract chain.Address, assetID chain.TokenID, amount chain.Amount, want asset.Kind) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.authorize(tx, id, false); err != nil {
		return err
	}
	if amount == 0 {
		return chain.Errorf(chain.ErrInvalidAmount, "withdraw amount must be positive")
	}
	c, kind, err := v.kindOf(contract)
	if err != nil {
		return err
	}
	if want != asset.KindUnknown && kind != want {
		return chain.Errorf(chain.ErrUnsupportedAsset, "%s is %s, not %s", contract, kind, want)
	}
	if kind == asset.KindFungible {
		assetID = FungibleID
	}
	key := Key{Contract: contract, ID: assetID}
	if held := v.ledger.amount(id, key); held < amount {
		return chain.Errorf(chain.ErrInsufficientCustodyBalance,
			"vault %d holds %d of %s #%d, asked for %d", id, held, contract, assetID, amount)
	}

	release := tx.As(v.addr)
	switch kind {
	case asset.KindNFT:
		err = c.(asset.NonFungible).SafeTransferFrom(release, v.addr, tx.Sender, assetID)
	case asset.KindFungible:
		err = c.(asset.Fungible).Transfer(release, tx.Sender, amount)
	case asset.KindMulti:
		err = c.(asset.MultiToken).SafeTransferFrom(release, v.addr, tx.Sender, assetID, amount)
	}
	if err != nil {
		return pullFailed(err, contract)
	}

	v.ledger.debit(id, key, amount)
	tx.Emit(v.addr, "Withdrawal", id, contract, assetID, amount)
	return nil
}

// TransferAsset moves a ledger entry from one vault to another. The asset
// stays in the vault contract's custody; only the owner of the source vault
// may move it.
func (v *Vault) TransferAsset(tx *chain.Tx, from, to chain.TokenID, contract chain.Address, assetID chain.TokenID, amount chain.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, err := v.protector.OwnerOf(from)
	if err != nil {
		return err
	}
	if tx.Sender != owner {
		return chain.Errorf(chain.ErrAccessDenied, "only the owner of vault %d may move its assets", from)
	}
	if _, err := v.protector.OwnerOf(to); err != nil {
		return err
	}
	if from == to {
		return chain.Errorf(chain.ErrInvalidRecipient, "source and destination vault are both %d", from)
	}
	if amount == 0 {
		return chain.Errorf(chain.ErrInvalidAmount, "move amount must be positive")
	}
	key := Key{Contract: contract, ID: assetID}
	if held := v.ledger.amount(from, key); held < amount {
		return chain.Errorf(chain.ErrInsufficientCustodyBalance,
			"vault %d holds %d of %s #%d, asked for %d", from, held, contract, assetID, amount)
	}
	if !v.ledger.canCredit(to, key, amount) {
		return chain.Errorf(chain.ErrAmountOverflow, "vault %d balance of %s would overflow", to, contract)
	}

	v.ledger.debit(from, key, amount)
	v.ledger.credit(to, key, amount)
	tx.Emit(v.addr, "AssetMoved", from, to, contract, assetID, amount)
	return nil
}
