package token

import (
	"github.com/auditbazaar/auditbazaar-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Token holds all token info.
type Token struct {
	// Ticker symbol
	Symbol string
	// Amount of decimals
	Decimals int
	// Storage key for circulation value
	CirculationKey string
}

const (
	symbol      = "BZT"
	decimals    = 8
	circulation = "BazaarCirculation"

	ownerKey = "tokenOwner"
)

const (
	// ErrInvalidOwner is thrown when owner has invalid format.
	ErrInvalidOwner = "invalid owner"
	// ErrMintAccess is thrown when mint is invoked by non-owner.
	ErrMintAccess = "only owner can mint tokens"
	// ErrBurnAccess is thrown when burn is invoked by non-owner.
	ErrBurnAccess = "only owner can burn tokens"
	// ErrNegativeSupply is thrown when burn exceeds total supply.
	ErrNegativeSupply = "negative supply after burn"
	// ErrTransferFailed is thrown when a mint or burn transfer fails.
	ErrTransferFailed = "can't transfer assets"
)

var token Token

func init() {
	token = Token{
		Symbol:         symbol,
		Decimals:       decimals,
		CirculationKey: circulation,
	}
}

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		owner interop.Hash160
	})

	if len(args.owner) != interop.Hash160Len {
		panic(ErrInvalidOwner)
	}

	storage.Put(ctx, ownerKey, args.owner)

	runtime.Log("bazaar token contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("bazaar token contract updated")
}

// Symbol is a NEP-17 standard method that returns the token symbol.
func Symbol() string {
	return token.Symbol
}

// Decimals is a NEP-17 standard method that returns the precision of the
// token.
func Decimals() int {
	return token.Decimals
}

// TotalSupply is a NEP-17 standard method that returns the amount of tokens
// in circulation.
func TotalSupply() int {
	ctx := storage.GetReadOnlyContext()
	return token.getSupply(ctx)
}

// BalanceOf is a NEP-17 standard method that returns the token balance of
// the specified account.
func BalanceOf(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return getBalance(ctx, account)
}

// Transfer is a NEP-17 standard method that transfers tokens from one
// account to another. It can be invoked by the account owner or by a
// contract owning the account.
//
// Produces Transfer and TransferX notifications. TransferX notification
// carries the details argument as is.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	ctx := storage.GetContext()

	var details []byte
	if data != nil {
		details = data.([]byte)
	}

	return token.transfer(ctx, from, to, amount, false, details)
}

// Mint creates the specified amount of tokens on the target account and
// increases total supply. It can be invoked only by the token owner.
//
// Produces Mint, Transfer and TransferX notifications.
func Mint(to interop.Hash160, amount int) {
	ctx := storage.GetContext()
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	if !runtime.CheckWitness(owner) {
		panic(ErrMintAccess)
	}

	ok := token.transfer(ctx, nil, to, amount, true, nil)
	if !ok {
		panic(ErrTransferFailed)
	}

	supply := token.getSupply(ctx)
	storage.Put(ctx, token.CirculationKey, supply+amount)
	runtime.Notify("Mint", to, amount)
}

// Burn removes the specified amount of tokens from the target account and
// decreases total supply. It can be invoked only by the token owner.
//
// Produces Burn, Transfer and TransferX notifications.
func Burn(from interop.Hash160, amount int) {
	ctx := storage.GetContext()
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	if !runtime.CheckWitness(owner) {
		panic(ErrBurnAccess)
	}

	ok := token.transfer(ctx, from, nil, amount, true, nil)
	if !ok {
		panic(ErrTransferFailed)
	}

	supply := token.getSupply(ctx)
	if supply < amount {
		panic(ErrNegativeSupply)
	}

	storage.Put(ctx, token.CirculationKey, supply-amount)
	runtime.Notify("Burn", from, amount)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// getSupply gets the token totalSupply value from VM storage.
func (t Token) getSupply(ctx storage.Context) int {
	supply := storage.Get(ctx, t.CirculationKey)
	if supply != nil {
		return supply.(int)
	}

	return 0
}

// transfer moves the amount between accounts. The owned flag is set on
// owner-authorized supply operations (mint, burn) which skip the sender
// address check.
func (t Token) transfer(ctx storage.Context, from, to interop.Hash160, amount int, owned bool, details []byte) bool {
	ok := t.canTransfer(ctx, from, to, amount, owned)
	if !ok {
		return false
	}

	if len(from) == interop.Hash160Len {
		balance := getBalance(ctx, from)
		if balance == amount {
			storage.Delete(ctx, from)
		} else {
			storage.Put(ctx, from, balance-amount)
		}
	}

	if len(to) == interop.Hash160Len {
		balance := getBalance(ctx, to)
		storage.Put(ctx, to, balance+amount)
	}

	runtime.Notify("Transfer", from, to, amount)
	runtime.Notify("TransferX", from, to, amount, details)

	return true
}

func (t Token) canTransfer(ctx storage.Context, from, to interop.Hash160, amount int, owned bool) bool {
	if amount < 0 {
		return false
	}

	// mint has no source account
	if len(from) == 0 {
		return true
	}

	if !owned && !isUsableAddress(from) {
		runtime.Log("bad script hashes")
		return false
	}

	if getBalance(ctx, from) < amount {
		runtime.Log("not enough assets")
		return false
	}

	return true
}

// isUsableAddress checks if the sender either has signed the transaction or
// is the calling contract itself.
func isUsableAddress(addr interop.Hash160) bool {
	if len(addr) == interop.Hash160Len {
		if runtime.CheckWitness(addr) {
			return true
		}

		// Check if a smart contract is calling script hash
		callingScriptHash := runtime.GetCallingScriptHash()
		if callingScriptHash.Equals(addr) {
			return true
		}
	}

	return false
}

func getBalance(ctx storage.Context, key interop.Hash160) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}
