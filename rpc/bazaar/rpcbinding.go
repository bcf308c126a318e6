// Package bazaar contains RPC wrappers for the AuditBazaar contract.
package bazaar

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Audit lifecycle states as stored in AuditRecord.State.
const (
	StateRequested  int64 = 0
	StateAssigned   int64 = 1
	StateInProgress int64 = 2
	StateSubmitted  int64 = 3
	StateCompleted  int64 = 4
	StateDisputed   int64 = 5
	StateResolved   int64 = 6
	StateCancelled  int64 = 7
	StateRefunded   int64 = 8
)

// AuditRecord is a contract-specific bazaar.AuditRecord type used by its methods.
type AuditRecord struct {
	ID        *big.Int
	Requester util.Uint160
	Auditor   util.Uint160
	Arbiter   util.Uint160
	Amount    *big.Int
	State     *big.Int
	Deadline  *big.Int
	CreatedAt *big.Int
	UpdatedAt *big.Int
}

// ExtensionRequest is a contract-specific bazaar.ExtensionRequest type used by its methods.
type ExtensionRequest struct {
	NewDeadline *big.Int
	Haircut     *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// GetCurrentAuditID invokes `getCurrentAuditID` method of contract.
func (c *ContractReader) GetCurrentAuditID() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getCurrentAuditID"))
}

// GetAudit invokes `getAudit` method of contract.
func (c *ContractReader) GetAudit(id *big.Int) (*AuditRecord, error) {
	return itemToAuditRecord(unwrap.Item(c.invoker.Call(c.hash, "getAudit", id)))
}

// GetReport invokes `getReport` method of contract.
func (c *ContractReader) GetReport(id *big.Int) ([]byte, error) {
	return unwrap.Bytes(c.invoker.Call(c.hash, "getReport", id))
}

// GetExtension invokes `getExtension` method of contract.
func (c *ContractReader) GetExtension(id *big.Int) (*ExtensionRequest, error) {
	return itemToExtensionRequest(unwrap.Item(c.invoker.Call(c.hash, "getExtension", id)))
}

// EscrowOf invokes `escrowOf` method of contract.
func (c *ContractReader) EscrowOf(id *big.Int) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "escrowOf", id))
}

// Token invokes `token` method of contract.
func (c *ContractReader) Token() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "token"))
}

// TokenBalance invokes `tokenBalance` method of contract.
func (c *ContractReader) TokenBalance() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "tokenBalance"))
}

// ListAudits invokes `listAudits` method of contract.
func (c *ContractReader) ListAudits() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listAudits"))
}

// ListAuditsExpanded is similar to ListAudits (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListAuditsExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listAudits", _numOfIteratorItems))
}

// ListAuditsByState invokes `listAuditsByState` method of contract.
func (c *ContractReader) ListAuditsByState(state *big.Int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.Call(c.hash, "listAuditsByState", state))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// RequestAudit creates a transaction invoking `requestAudit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RequestAudit(requester util.Uint160, amount *big.Int, arbiter util.Uint160, deadline *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "requestAudit", requester, amount, arbiter, deadline)
}

// RequestAuditTransaction creates a transaction invoking `requestAudit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RequestAuditTransaction(requester util.Uint160, amount *big.Int, arbiter util.Uint160, deadline *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "requestAudit", requester, amount, arbiter, deadline)
}

// RequestAuditUnsigned creates a transaction invoking `requestAudit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RequestAuditUnsigned(requester util.Uint160, amount *big.Int, arbiter util.Uint160, deadline *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "requestAudit", nil, requester, amount, arbiter, deadline)
}

// AssignAuditor creates a transaction invoking `assignAuditor` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AssignAuditor(id *big.Int, auditor util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "assignAuditor", id, auditor)
}

// AssignAuditorTransaction creates a transaction invoking `assignAuditor` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AssignAuditorTransaction(id *big.Int, auditor util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "assignAuditor", id, auditor)
}

// AssignAuditorUnsigned creates a transaction invoking `assignAuditor` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AssignAuditorUnsigned(id *big.Int, auditor util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "assignAuditor", nil, id, auditor)
}

// StartWork creates a transaction invoking `startWork` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) StartWork(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "startWork", id)
}

// StartWorkTransaction creates a transaction invoking `startWork` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) StartWorkTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "startWork", id)
}

// StartWorkUnsigned creates a transaction invoking `startWork` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) StartWorkUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "startWork", nil, id)
}

// SubmitAudit creates a transaction invoking `submitAudit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SubmitAudit(id *big.Int, reportRef []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "submitAudit", id, reportRef)
}

// SubmitAuditTransaction creates a transaction invoking `submitAudit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SubmitAuditTransaction(id *big.Int, reportRef []byte) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "submitAudit", id, reportRef)
}

// SubmitAuditUnsigned creates a transaction invoking `submitAudit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SubmitAuditUnsigned(id *big.Int, reportRef []byte) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "submitAudit", nil, id, reportRef)
}

// ApproveAudit creates a transaction invoking `approveAudit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ApproveAudit(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "approveAudit", id)
}

// ApproveAuditTransaction creates a transaction invoking `approveAudit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ApproveAuditTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "approveAudit", id)
}

// ApproveAuditUnsigned creates a transaction invoking `approveAudit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ApproveAuditUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "approveAudit", nil, id)
}

// Dispute creates a transaction invoking `dispute` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Dispute(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "dispute", id)
}

// DisputeTransaction creates a transaction invoking `dispute` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) DisputeTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "dispute", id)
}

// DisputeUnsigned creates a transaction invoking `dispute` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) DisputeUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "dispute", nil, id)
}

// Resolve creates a transaction invoking `resolve` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Resolve(id *big.Int, favorAuditor bool) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "resolve", id, favorAuditor)
}

// ResolveTransaction creates a transaction invoking `resolve` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ResolveTransaction(id *big.Int, favorAuditor bool) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "resolve", id, favorAuditor)
}

// ResolveUnsigned creates a transaction invoking `resolve` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ResolveUnsigned(id *big.Int, favorAuditor bool) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "resolve", nil, id, favorAuditor)
}

// CancelAudit creates a transaction invoking `cancelAudit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CancelAudit(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "cancelAudit", id)
}

// CancelAuditTransaction creates a transaction invoking `cancelAudit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) CancelAuditTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "cancelAudit", id)
}

// CancelAuditUnsigned creates a transaction invoking `cancelAudit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) CancelAuditUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "cancelAudit", nil, id)
}

// ExpireAudit creates a transaction invoking `expireAudit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ExpireAudit(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "expireAudit", id)
}

// ExpireAuditTransaction creates a transaction invoking `expireAudit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ExpireAuditTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "expireAudit", id)
}

// ExpireAuditUnsigned creates a transaction invoking `expireAudit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ExpireAuditUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "expireAudit", nil, id)
}

// RequestExtension creates a transaction invoking `requestExtension` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RequestExtension(id *big.Int, newDeadline *big.Int, haircut *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "requestExtension", id, newDeadline, haircut)
}

// RequestExtensionTransaction creates a transaction invoking `requestExtension` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RequestExtensionTransaction(id *big.Int, newDeadline *big.Int, haircut *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "requestExtension", id, newDeadline, haircut)
}

// RequestExtensionUnsigned creates a transaction invoking `requestExtension` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RequestExtensionUnsigned(id *big.Int, newDeadline *big.Int, haircut *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "requestExtension", nil, id, newDeadline, haircut)
}

// ApproveExtension creates a transaction invoking `approveExtension` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ApproveExtension(id *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "approveExtension", id)
}

// ApproveExtensionTransaction creates a transaction invoking `approveExtension` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ApproveExtensionTransaction(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "approveExtension", id)
}

// ApproveExtensionUnsigned creates a transaction invoking `approveExtension` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ApproveExtensionUnsigned(id *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "approveExtension", nil, id)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// itemToAuditRecord converts stack item into *AuditRecord.
func itemToAuditRecord(item stackitem.Item, err error) (*AuditRecord, error) {
	if err != nil {
		return nil, err
	}
	var res = new(AuditRecord)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of AuditRecord from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *AuditRecord) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 9 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.ID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	index++
	res.Requester, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Requester: %w", err)
	}

	index++
	res.Auditor, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Auditor: %w", err)
	}

	index++
	res.Arbiter, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Arbiter: %w", err)
	}

	index++
	res.Amount, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	index++
	res.State, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field State: %w", err)
	}

	index++
	res.Deadline, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Deadline: %w", err)
	}

	index++
	res.CreatedAt, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field CreatedAt: %w", err)
	}

	index++
	res.UpdatedAt, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field UpdatedAt: %w", err)
	}

	return nil
}

// itemToExtensionRequest converts stack item into *ExtensionRequest.
func itemToExtensionRequest(item stackitem.Item, err error) (*ExtensionRequest, error) {
	if err != nil {
		return nil, err
	}
	var res = new(ExtensionRequest)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of ExtensionRequest from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *ExtensionRequest) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	res.NewDeadline, err = arr[0].TryInteger()
	if err != nil {
		return fmt.Errorf("field NewDeadline: %w", err)
	}

	res.Haircut, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Haircut: %w", err)
	}

	return nil
}

// itemToUint160 decodes a Hash160 field, Null and an empty byte string both
// decode into the zero hash (unassigned auditor).
func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	if _, ok := item.(stackitem.Null); ok {
		return util.Uint160{}, nil
	}

	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	if len(b) == 0 {
		return util.Uint160{}, nil
	}

	return util.Uint160DecodeBytesBE(b)
}
