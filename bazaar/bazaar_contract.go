package bazaar

import (
	"github.com/auditbazaar/auditbazaar-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

type (
	// AuditRecord describes a single audit engagement tracked by the
	// marketplace. Deadline is relative to creation until an auditor is
	// assigned, absolute block time (ms) afterwards.
	AuditRecord struct {
		ID        int
		Requester interop.Hash160
		Auditor   interop.Hash160
		Arbiter   interop.Hash160
		Amount    int
		State     int
		Deadline  int
		CreatedAt int
		UpdatedAt int
	}

	// ExtensionRequest is a pending deadline extension proposed by the
	// auditor. Haircut is the percentage of the escrowed amount returned
	// to the requester on approval.
	ExtensionRequest struct {
		NewDeadline int
		Haircut     int
	}
)

// Audit lifecycle states. Completed, Resolved, Cancelled and Refunded are
// terminal, no transition leaves them.
const (
	StateRequested  = 0
	StateAssigned   = 1
	StateInProgress = 2
	StateSubmitted  = 3
	StateCompleted  = 4
	StateDisputed   = 5
	StateResolved   = 6
	StateCancelled  = 7
	StateRefunded   = 8
)

const (
	// ErrInvalidAmount is thrown on a zero or negative funding request.
	ErrInvalidAmount = "invalid amount"
	// ErrInvalidDeadline is thrown when a deadline is not in the future.
	ErrInvalidDeadline = "invalid deadline"
	// ErrInvalidRequester is thrown when requester has invalid format.
	ErrInvalidRequester = "invalid requester"
	// ErrInvalidAuditor is thrown when auditor has invalid format.
	ErrInvalidAuditor = "invalid auditor"
	// ErrInvalidArbiter is thrown when arbiter has invalid format.
	ErrInvalidArbiter = "invalid arbiter"
	// ErrInvalidOwner is thrown when owner has invalid format.
	ErrInvalidOwner = "invalid owner"
	// ErrInvalidToken is thrown when the settlement token script hash
	// has invalid format.
	ErrInvalidToken = "invalid token contract script hash"
	// ErrTokenNotDeployed is thrown when no contract lives at the
	// settlement token script hash.
	ErrTokenNotDeployed = "settlement token is not deployed"
	// ErrInvalidReport is thrown when the submitted report reference is empty.
	ErrInvalidReport = "invalid report reference"
	// ErrInvalidHaircut is thrown when a haircut percentage is out of range.
	ErrInvalidHaircut = "invalid haircut percentage"
	// ErrNotFound is thrown when audit id doesn't exist.
	ErrNotFound = "audit not found"
	// ErrInvalidState is thrown when an operation is not valid for the
	// current lifecycle state.
	ErrInvalidState = "invalid audit state"
	// ErrAlreadyResolved is thrown on an attempt to act on an audit in a
	// terminal state.
	ErrAlreadyResolved = "audit already in terminal state"
	// ErrUnauthorized is thrown when the invoker holds none of the roles
	// the operation requires.
	ErrUnauthorized = "unauthorized"
	// ErrTransferFailed is thrown when the settlement token call did not
	// succeed.
	ErrTransferFailed = "token transfer failed"
	// ErrNoExtension is thrown when no extension request is pending.
	ErrNoExtension = "no extension request"
	// ErrDeadlineNotPassed is thrown on expiry before the deadline.
	ErrDeadlineNotPassed = "deadline has not passed"
	// ErrDeadlinePassed is thrown on submission after the deadline.
	ErrDeadlinePassed = "deadline has passed"
	// ErrEscrowMismatch is thrown when a disbursement exceeds the locked
	// escrow balance.
	ErrEscrowMismatch = "escrow does not hold enough funds"
)

const (
	tokenKey   = "tokenScriptHash"
	ownerKey   = "contractOwner"
	auditIDKey = "auditID"

	recordPrefix    = 'r'
	escrowPrefix    = 'e'
	reportPrefix    = 'p'
	extensionPrefix = 'x'
)

// Roles the invoker may hold for a particular audit record.
const (
	roleRequester = 1
	roleAuditor   = 2
	roleArbiter   = 4
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		token interop.Hash160
		owner interop.Hash160
	})

	if len(args.token) != interop.Hash160Len {
		panic(ErrInvalidToken)
	}
	if management.GetContract(args.token) == nil {
		panic(ErrTokenNotDeployed)
	}
	if len(args.owner) != interop.Hash160Len {
		panic(ErrInvalidOwner)
	}

	storage.Put(ctx, tokenKey, args.token)
	storage.Put(ctx, ownerKey, args.owner)
	storage.Put(ctx, auditIDKey, 0)

	runtime.Log("audit bazaar contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("audit bazaar contract updated")
}

// RequestAudit creates a new audit engagement funded by the requester and
// returns its id. The full amount is pulled from the requester into the
// contract escrow account in the same transaction; if the pull fails, the
// whole call is aborted and no id is consumed. An empty arbiter defaults to
// the contract owner. Deadline is a relative period (ms) counted from the
// moment an auditor is assigned.
func RequestAudit(requester interop.Hash160, amount int, arbiter interop.Hash160, deadline int) int {
	ctx := storage.GetContext()

	if len(requester) != interop.Hash160Len {
		panic(ErrInvalidRequester)
	}
	if amount <= 0 {
		panic(ErrInvalidAmount)
	}
	if deadline <= 0 {
		panic(ErrInvalidDeadline)
	}
	if len(arbiter) == 0 {
		arbiter = storage.Get(ctx, ownerKey).(interop.Hash160)
	} else if len(arbiter) != interop.Hash160Len {
		panic(ErrInvalidArbiter)
	}

	common.CheckOwnerWitness(requester)

	id := common.GetInt(ctx, auditIDKey)
	storage.Put(ctx, auditIDKey, id+1)

	now := runtime.GetTime()
	rec := AuditRecord{
		ID:        id,
		Requester: requester,
		Auditor:   nil,
		Arbiter:   arbiter,
		Amount:    amount,
		State:     StateRequested,
		Deadline:  deadline,
		CreatedAt: now,
		UpdatedAt: now,
	}
	common.SetSerialized(ctx, recordKey(id), rec)

	lockEscrow(ctx, id, requester, amount)

	runtime.Notify("AuditRequested", id, requester, amount)

	return id
}

// AssignAuditor assigns an auditor to a requested audit and anchors its
// deadline to the current block time. It can be invoked by the requester or
// by the contract owner.
func AssignAuditor(id int, auditor interop.Hash160) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateRequested)

	if len(auditor) != interop.Hash160Len {
		panic(ErrInvalidAuditor)
	}

	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	if heldRoles(rec)&roleRequester == 0 && !runtime.CheckWitness(owner) {
		panic(ErrUnauthorized)
	}

	rec.Auditor = auditor
	rec.State = StateAssigned
	rec.Deadline = runtime.GetTime() + rec.Deadline
	putRecord(ctx, rec)

	runtime.Notify("AuditAssigned", id, auditor)
}

// StartWork marks an assigned audit as being worked on. It can be invoked
// only by the assigned auditor.
func StartWork(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateAssigned)
	requireRole(rec, roleAuditor)

	rec.State = StateInProgress
	putRecord(ctx, rec)

	runtime.Notify("WorkStarted", id)
}

// SubmitAudit stores an opaque report reference (e.g. an IPFS hash of the
// delivered report) and marks the audit as submitted. It can be invoked only
// by the assigned auditor before the deadline. The reference is stored as is
// and is not interpreted by the contract.
func SubmitAudit(id int, reportRef []byte) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateInProgress)
	requireRole(rec, roleAuditor)

	if len(reportRef) == 0 {
		panic(ErrInvalidReport)
	}
	if runtime.GetTime() > rec.Deadline {
		panic(ErrDeadlinePassed)
	}

	storage.Put(ctx, reportKey(id), reportRef)
	rec.State = StateSubmitted
	putRecord(ctx, rec)

	runtime.Notify("AuditSubmitted", id, reportRef)
}

// ApproveAudit accepts a submitted report and pays the escrowed amount out
// to the auditor. It can be invoked only by the requester. The terminal state
// is stored before the token call, a failed payout aborts the transaction and
// leaves the audit submitted so the call can be retried.
func ApproveAudit(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateSubmitted)
	requireRole(rec, roleRequester)

	amount := common.GetInt(ctx, escrowKey(id))
	rec.State = StateCompleted
	putRecord(ctx, rec)
	releaseEscrow(ctx, id, rec.Auditor, amount, common.ReleaseTransferDetails(id))

	runtime.Notify("AuditCompleted", id, rec.Auditor, amount)
	runtime.Log("audit approved")
}

// Dispute rejects a submitted report and hands the audit over to the
// arbiter. It can be invoked only by the requester.
func Dispute(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateSubmitted)
	requireRole(rec, roleRequester)

	rec.State = StateDisputed
	putRecord(ctx, rec)

	runtime.Notify("AuditDisputed", id)
}

// Resolve settles a disputed audit. It can be invoked only by the arbiter.
// When favorAuditor is true the escrowed amount is paid out to the auditor,
// otherwise it is returned to the requester in full.
func Resolve(id int, favorAuditor bool) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateDisputed)
	requireRole(rec, roleArbiter)

	amount := common.GetInt(ctx, escrowKey(id))
	rec.State = StateResolved
	putRecord(ctx, rec)

	if favorAuditor {
		releaseEscrow(ctx, id, rec.Auditor, amount, common.ReleaseTransferDetails(id))
	} else {
		releaseEscrow(ctx, id, rec.Requester, amount, common.RefundTransferDetails(id))
	}

	runtime.Notify("AuditResolved", id, favorAuditor)
}

// CancelAudit cancels an audit no auditor has been assigned to yet and
// refunds the escrowed amount to the requester. It can be invoked only by
// the requester.
func CancelAudit(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireState(rec, StateRequested)
	requireRole(rec, roleRequester)

	amount := common.GetInt(ctx, escrowKey(id))
	rec.State = StateCancelled
	putRecord(ctx, rec)
	releaseEscrow(ctx, id, rec.Requester, amount, common.RefundTransferDetails(id))

	runtime.Notify("AuditCancelled", id)
}

// ExpireAudit reclaims the escrowed amount of an audit whose deadline has
// passed without completion. It can be invoked only by the requester once an
// auditor has been assigned; unassigned audits are reclaimed via cancelAudit.
func ExpireAudit(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	if isTerminal(rec.State) {
		panic(ErrAlreadyResolved)
	}
	if rec.State == StateRequested {
		panic(ErrInvalidState)
	}
	requireRole(rec, roleRequester)

	if runtime.GetTime() <= rec.Deadline {
		panic(ErrDeadlineNotPassed)
	}

	amount := common.GetInt(ctx, escrowKey(id))
	rec.State = StateRefunded
	putRecord(ctx, rec)
	releaseEscrow(ctx, id, rec.Requester, amount, common.RefundTransferDetails(id))

	runtime.Notify("AuditRefunded", id, amount)
}

// RequestExtension records the auditor's proposal to move the deadline in
// exchange for a haircut percentage of the escrowed amount. It can be invoked
// only by the assigned auditor while work has not been submitted yet. A
// repeated request overwrites the pending one.
func RequestExtension(id int, newDeadline int, haircut int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireActive(rec)
	requireRole(rec, roleAuditor)

	if haircut < 0 || haircut >= 100 {
		panic(ErrInvalidHaircut)
	}
	if newDeadline <= rec.Deadline {
		panic(ErrInvalidDeadline)
	}

	common.SetSerialized(ctx, extensionKey(id), ExtensionRequest{
		NewDeadline: newDeadline,
		Haircut:     haircut,
	})

	runtime.Notify("ExtensionRequested", id, newDeadline, haircut)
}

// ApproveExtension accepts the pending extension request: the haircut share
// of the escrowed amount is returned to the requester immediately and the
// deadline is moved. It can be invoked only by the requester.
func ApproveExtension(id int) {
	ctx := storage.GetContext()
	rec := getRecord(ctx, id)
	requireActive(rec)
	requireRole(rec, roleRequester)

	data := storage.Get(ctx, extensionKey(id))
	if data == nil {
		panic(ErrNoExtension)
	}
	req := std.Deserialize(data.([]byte)).(ExtensionRequest)

	cut := rec.Amount * req.Haircut / 100
	rec.Amount = rec.Amount - cut
	rec.Deadline = req.NewDeadline
	putRecord(ctx, rec)
	storage.Delete(ctx, extensionKey(id))

	if cut > 0 {
		releaseEscrow(ctx, id, rec.Requester, cut, common.RefundTransferDetails(id))
	}

	runtime.Notify("ExtensionApproved", id, req.NewDeadline, cut)
}

// GetCurrentAuditID returns the id assigned to the most recently created
// audit, or -1 if no audits exist yet.
func GetCurrentAuditID() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, auditIDKey) - 1
}

// GetAudit returns the audit record with the specified id.
func GetAudit(id int) AuditRecord {
	ctx := storage.GetReadOnlyContext()
	return getRecord(ctx, id)
}

// GetReport returns the report reference submitted for the audit, or nil if
// nothing has been submitted yet.
func GetReport(id int) []byte {
	ctx := storage.GetReadOnlyContext()
	getRecord(ctx, id)

	data := storage.Get(ctx, reportKey(id))
	if data == nil {
		return nil
	}
	return data.([]byte)
}

// GetExtension returns the pending extension request for the audit.
func GetExtension(id int) ExtensionRequest {
	ctx := storage.GetReadOnlyContext()
	getRecord(ctx, id)

	data := storage.Get(ctx, extensionKey(id))
	if data == nil {
		panic(ErrNoExtension)
	}
	return std.Deserialize(data.([]byte)).(ExtensionRequest)
}

// EscrowOf returns the token amount currently locked for the audit. It is
// zero once the audit reaches a terminal state.
func EscrowOf(id int) int {
	ctx := storage.GetReadOnlyContext()
	getRecord(ctx, id)

	return common.GetInt(ctx, escrowKey(id))
}

// Token returns the script hash of the settlement token fixed at deploy.
func Token() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, tokenKey).(interop.Hash160)
}

// TokenBalance returns the settlement token balance held by the contract
// account, i.e. the sum of all currently locked escrows.
func TokenBalance() int {
	ctx := storage.GetReadOnlyContext()
	return tokenBalanceOf(ctx, runtime.GetExecutingScriptHash())
}

// ListAudits returns an iterator over ids of all audits ever created.
func ListAudits() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, []byte{recordPrefix}, storage.KeysOnly|storage.RemovePrefix)
}

// ListAuditsByState returns ids of all audits currently in the specified
// lifecycle state.
func ListAuditsByState(state int) []int {
	ctx := storage.GetReadOnlyContext()
	it := storage.Find(ctx, []byte{recordPrefix}, storage.ValuesOnly|storage.DeserializeValues)

	var result []int
	for iterator.Next(it) {
		rec := iterator.Value(it).(AuditRecord)
		if rec.State == state {
			result = append(result, rec.ID)
		}
	}

	return result
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// heldRoles reports which of the stored audit parties have witnessed the
// current transaction.
func heldRoles(rec AuditRecord) int {
	roles := 0
	if runtime.CheckWitness(rec.Requester) {
		roles = roles | roleRequester
	}
	if len(rec.Auditor) == interop.Hash160Len && runtime.CheckWitness(rec.Auditor) {
		roles = roles | roleAuditor
	}
	if len(rec.Arbiter) == interop.Hash160Len && runtime.CheckWitness(rec.Arbiter) {
		roles = roles | roleArbiter
	}

	return roles
}

func requireRole(rec AuditRecord, role int) {
	if heldRoles(rec)&role == 0 {
		panic(ErrUnauthorized)
	}
}

func requireState(rec AuditRecord, state int) {
	if rec.State == state {
		return
	}
	if isTerminal(rec.State) {
		panic(ErrAlreadyResolved)
	}
	panic(ErrInvalidState)
}

// requireActive checks that the auditor is still working on the audit, i.e.
// it is assigned or in progress.
func requireActive(rec AuditRecord) {
	if rec.State == StateAssigned || rec.State == StateInProgress {
		return
	}
	if isTerminal(rec.State) {
		panic(ErrAlreadyResolved)
	}
	panic(ErrInvalidState)
}

func isTerminal(state int) bool {
	return state == StateCompleted || state == StateResolved ||
		state == StateCancelled || state == StateRefunded
}

func getRecord(ctx storage.Context, id int) AuditRecord {
	data := storage.Get(ctx, recordKey(id))
	if data == nil {
		panic(ErrNotFound)
	}

	return std.Deserialize(data.([]byte)).(AuditRecord)
}

func putRecord(ctx storage.Context, rec AuditRecord) {
	rec.UpdatedAt = runtime.GetTime()
	common.SetSerialized(ctx, recordKey(rec.ID), rec)
}

// lockEscrow records the locked balance for the audit and pulls the amount
// from the requester. The pull is the last step, a failure aborts the whole
// transaction together with the record and the ledger entry.
func lockEscrow(ctx storage.Context, id int, from interop.Hash160, amount int) {
	storage.Put(ctx, escrowKey(id), amount)
	tokenPull(ctx, from, amount, common.LockTransferDetails(id))
	runtime.Notify("TokenLocked", id, from, amount)
}

// releaseEscrow pays out at most the locked amount for the audit. The ledger
// entry is decreased before the external token call so that a reentrant
// invocation observes the already updated balance.
func releaseEscrow(ctx storage.Context, id int, to interop.Hash160, amount int, details []byte) {
	key := escrowKey(id)
	locked := common.GetInt(ctx, key)
	if amount > locked {
		panic(ErrEscrowMismatch)
	}

	storage.Put(ctx, key, locked-amount)
	tokenPush(ctx, to, amount, details)
	runtime.Notify("TokenReleased", id, to, amount)
}

func tokenPull(ctx storage.Context, from interop.Hash160, amount int, details []byte) {
	token := storage.Get(ctx, tokenKey).(interop.Hash160)
	self := runtime.GetExecutingScriptHash()

	ok := contract.Call(token, "transfer", contract.All, from, self, amount, details)
	if !ok.(bool) {
		panic(ErrTransferFailed)
	}
}

func tokenPush(ctx storage.Context, to interop.Hash160, amount int, details []byte) {
	token := storage.Get(ctx, tokenKey).(interop.Hash160)
	self := runtime.GetExecutingScriptHash()

	ok := contract.Call(token, "transfer", contract.All, self, to, amount, details)
	if !ok.(bool) {
		panic(ErrTransferFailed)
	}
}

func tokenBalanceOf(ctx storage.Context, who interop.Hash160) int {
	token := storage.Get(ctx, tokenKey).(interop.Hash160)
	return contract.Call(token, "balanceOf", contract.ReadOnly, who).(int)
}

func recordKey(id int) []byte {
	return append([]byte{recordPrefix}, common.IDBytes(id)...)
}

func escrowKey(id int) []byte {
	return append([]byte{escrowPrefix}, common.IDBytes(id)...)
}

func reportKey(id int) []byte {
	return append([]byte{reportPrefix}, common.IDBytes(id)...)
}

func extensionKey(id int) []byte {
	return append([]byte{extensionPrefix}, common.IDBytes(id)...)
}
