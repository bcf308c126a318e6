package tests

import (
	"path"
	"strings"
	"testing"

	"github.com/auditbazaar/auditbazaar-contract/bazaar"
	"github.com/auditbazaar/auditbazaar-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const (
	bazaarPath  = "../bazaar"
	reenterPath = "../internal/testcontracts/reenter"
)

const (
	initialBalance = 1000
	auditPrice     = 100
	msPerHour      = 3_600_000
)

func deployBazaarContract(t *testing.T, e *neotest.Executor, addrToken util.Uint160) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, bazaarPath, path.Join(bazaarPath, "config.yml"))
	args := []interface{}{addrToken, e.CommitteeHash}
	e.DeployContract(t, c, args)
	return c.Hash
}

func newBazaarInvoker(t *testing.T) (*neotest.ContractInvoker, *neotest.ContractInvoker) {
	e := newExecutor(t)
	addrToken := deployTokenContract(t, e)
	h := deployBazaarContract(t, e, addrToken)
	return e.CommitteeInvoker(h), e.CommitteeInvoker(addrToken)
}

type auditParties struct {
	requester neotest.Signer
	auditor   neotest.Signer
	arbiter   neotest.Signer
}

func newAuditParties(t *testing.T, c, cTok *neotest.ContractInvoker) auditParties {
	p := auditParties{
		requester: c.NewAccount(t),
		auditor:   c.NewAccount(t),
		arbiter:   c.NewAccount(t),
	}
	cTok.Invoke(t, stackitem.Null{}, "mint", p.requester.ScriptHash(), initialBalance)
	return p
}

func requestAudit(t *testing.T, c *neotest.ContractInvoker, p auditParties, id int64) {
	c.WithSigners(p.requester).Invoke(t, id, "requestAudit",
		p.requester.ScriptHash(), auditPrice, p.arbiter.ScriptHash(), msPerHour)
}

func assignAuditor(t *testing.T, c *neotest.ContractInvoker, p auditParties, id int64) {
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "assignAuditor", id, p.auditor.ScriptHash())
}

func runToSubmitted(t *testing.T, c *neotest.ContractInvoker, p auditParties, id int64) []byte {
	requestAudit(t, c, p, id)
	assignAuditor(t, c, p, id)

	cAud := c.WithSigners(p.auditor)
	cAud.Invoke(t, stackitem.Null{}, "startWork", id)
	reportRef := randomReportRef()
	cAud.Invoke(t, stackitem.Null{}, "submitAudit", id, reportRef)
	return reportRef
}

func auditItems(t *testing.T, c *neotest.ContractInvoker, id int64) []stackitem.Item {
	s, err := c.TestInvoke(t, "getAudit", id)
	require.NoError(t, err)
	items, ok := s.Top().Value().([]stackitem.Item)
	require.True(t, ok)
	require.Len(t, items, 9)
	return items
}

func auditIntField(t *testing.T, c *neotest.ContractInvoker, id int64, index int) int64 {
	v, err := auditItems(t, c, id)[index].TryInteger()
	require.NoError(t, err)
	return v.Int64()
}

func auditState(t *testing.T, c *neotest.ContractInvoker, id int64) int64 {
	return auditIntField(t, c, id, 5)
}

func auditDeadline(t *testing.T, c *neotest.ContractInvoker, id int64) int64 {
	return auditIntField(t, c, id, 6)
}

func escrowOf(t *testing.T, c *neotest.ContractInvoker, id int64) int64 {
	s, err := c.TestInvoke(t, "escrowOf", id)
	require.NoError(t, err)
	return s.Top().BigInt().Int64()
}

func TestBazaarVersion(t *testing.T) {
	c, _ := newBazaarInvoker(t)
	c.Invoke(t, common.Version, "version")
}

func TestBazaarDeploy(t *testing.T) {
	e := newExecutor(t)
	c := neotest.CompileFile(t, e.CommitteeHash, bazaarPath, path.Join(bazaarPath, "config.yml"))
	args := []interface{}{util.Uint160{1, 2, 3}, e.CommitteeHash}
	e.DeployContractCheckFAULT(t, c, args, bazaar.ErrTokenNotDeployed)
}

func TestBazaarToken(t *testing.T) {
	c, cTok := newBazaarInvoker(t)

	s, err := c.TestInvoke(t, "token")
	require.NoError(t, err)
	got, err := s.Top().Item().TryBytes()
	require.NoError(t, err)
	require.Equal(t, cTok.Hash.BytesBE(), got)
}

func TestRequestAudit(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	c.Invoke(t, -1, "getCurrentAuditID")

	cReq := c.WithSigners(p.requester)
	cReq.InvokeFail(t, bazaar.ErrInvalidAmount, "requestAudit",
		p.requester.ScriptHash(), 0, p.arbiter.ScriptHash(), msPerHour)
	cReq.InvokeFail(t, bazaar.ErrInvalidDeadline, "requestAudit",
		p.requester.ScriptHash(), auditPrice, p.arbiter.ScriptHash(), 0)
	c.WithSigners(p.auditor).InvokeFail(t, common.ErrOwnerWitnessFailed, "requestAudit",
		p.requester.ScriptHash(), auditPrice, p.arbiter.ScriptHash(), msPerHour)

	requestAudit(t, c, p, 0)
	c.Invoke(t, 0, "getCurrentAuditID")
	require.EqualValues(t, bazaar.StateRequested, auditState(t, c, 0))
	require.EqualValues(t, auditPrice, escrowOf(t, c, 0))
	require.EqualValues(t, initialBalance-auditPrice, balanceOf(t, cTok, p.requester.ScriptHash()))
	require.EqualValues(t, auditPrice, balanceOf(t, cTok, c.Hash))
	c.Invoke(t, auditPrice, "tokenBalance")

	requestAudit(t, c, p, 1)
	c.Invoke(t, 1, "getCurrentAuditID")

	// a failed escrow pull aborts the whole call, no id is consumed
	cReq.InvokeFail(t, bazaar.ErrTransferFailed, "requestAudit",
		p.requester.ScriptHash(), initialBalance*10, p.arbiter.ScriptHash(), msPerHour)
	c.Invoke(t, 1, "getCurrentAuditID")
}

func TestDefaultArbiter(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	c.WithSigners(p.requester).Invoke(t, 0, "requestAudit",
		p.requester.ScriptHash(), auditPrice, nil, msPerHour)

	arb, err := auditItems(t, c, 0)[3].TryBytes()
	require.NoError(t, err)
	require.Equal(t, c.CommitteeHash.BytesBE(), arb)

	// the owner settles disputes of audits created without an arbiter
	assignAuditor(t, c, p, 0)
	cAud := c.WithSigners(p.auditor)
	cAud.Invoke(t, stackitem.Null{}, "startWork", 0)
	cAud.Invoke(t, stackitem.Null{}, "submitAudit", 0, randomReportRef())
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "dispute", 0)

	c.Invoke(t, stackitem.Null{}, "resolve", 0, true)
	require.EqualValues(t, bazaar.StateResolved, auditState(t, c, 0))
	require.EqualValues(t, auditPrice, balanceOf(t, cTok, p.auditor.ScriptHash()))
}

func TestAssignAuditor(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)
	stranger := c.NewAccount(t)

	requestAudit(t, c, p, 0)

	c.WithSigners(stranger).InvokeFail(t, bazaar.ErrUnauthorized, "assignAuditor", 0, p.auditor.ScriptHash())
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrInvalidAuditor, "assignAuditor", 0, []byte{1, 2, 3})
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrNotFound, "assignAuditor", 99, p.auditor.ScriptHash())

	assignAuditor(t, c, p, 0)
	require.EqualValues(t, bazaar.StateAssigned, auditState(t, c, 0))
	// the deadline is anchored to the block time on assignment
	require.Greater(t, auditDeadline(t, c, 0), int64(msPerHour))

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrInvalidState, "assignAuditor", 0, p.auditor.ScriptHash())

	// contract owner can assign as well
	requestAudit(t, c, p, 1)
	c.Invoke(t, stackitem.Null{}, "assignAuditor", 1, p.auditor.ScriptHash())
	require.EqualValues(t, bazaar.StateAssigned, auditState(t, c, 1))
}

func TestAuditLifecycle(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	requestAudit(t, c, p, 0)
	assignAuditor(t, c, p, 0)

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrUnauthorized, "startWork", 0)
	cAud := c.WithSigners(p.auditor)
	cAud.Invoke(t, stackitem.Null{}, "startWork", 0)
	require.EqualValues(t, bazaar.StateInProgress, auditState(t, c, 0))
	cAud.InvokeFail(t, bazaar.ErrInvalidState, "startWork", 0)

	s, err := c.TestInvoke(t, "getReport", 0)
	require.NoError(t, err)
	require.Equal(t, stackitem.Null{}, s.Top().Item())

	cAud.InvokeFail(t, bazaar.ErrInvalidReport, "submitAudit", 0, []byte{})
	reportRef := randomReportRef()
	cAud.Invoke(t, stackitem.Null{}, "submitAudit", 0, reportRef)
	require.EqualValues(t, bazaar.StateSubmitted, auditState(t, c, 0))

	s, err = c.TestInvoke(t, "getReport", 0)
	require.NoError(t, err)
	got, err := s.Top().Item().TryBytes()
	require.NoError(t, err)
	require.Equal(t, reportRef, got)

	cAud.InvokeFail(t, bazaar.ErrUnauthorized, "approveAudit", 0)
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "approveAudit", 0)
	require.EqualValues(t, bazaar.StateCompleted, auditState(t, c, 0))
	require.EqualValues(t, 0, escrowOf(t, c, 0))
	require.EqualValues(t, auditPrice, balanceOf(t, cTok, p.auditor.ScriptHash()))
	require.EqualValues(t, 0, balanceOf(t, cTok, c.Hash))

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrAlreadyResolved, "approveAudit", 0)
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrAlreadyResolved, "dispute", 0)
}

func TestCancelAudit(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	requestAudit(t, c, p, 0)

	c.WithSigners(p.auditor).InvokeFail(t, bazaar.ErrUnauthorized, "cancelAudit", 0)

	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "cancelAudit", 0)
	require.EqualValues(t, bazaar.StateCancelled, auditState(t, c, 0))
	require.EqualValues(t, 0, escrowOf(t, c, 0))
	require.EqualValues(t, initialBalance, balanceOf(t, cTok, p.requester.ScriptHash()))

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrAlreadyResolved, "cancelAudit", 0)

	// assigned audits are no longer cancellable
	requestAudit(t, c, p, 1)
	assignAuditor(t, c, p, 1)
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrInvalidState, "cancelAudit", 1)
}

func TestDisputeResolve(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	runToSubmitted(t, c, p, 0)
	runToSubmitted(t, c, p, 1)

	c.WithSigners(p.auditor).InvokeFail(t, bazaar.ErrUnauthorized, "dispute", 0)
	c.WithSigners(p.arbiter).InvokeFail(t, bazaar.ErrInvalidState, "resolve", 0, true)

	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "dispute", 0)
	require.EqualValues(t, bazaar.StateDisputed, auditState(t, c, 0))

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrUnauthorized, "resolve", 0, true)

	c.WithSigners(p.arbiter).Invoke(t, stackitem.Null{}, "resolve", 0, true)
	require.EqualValues(t, bazaar.StateResolved, auditState(t, c, 0))
	require.EqualValues(t, 0, escrowOf(t, c, 0))
	require.EqualValues(t, auditPrice, balanceOf(t, cTok, p.auditor.ScriptHash()))

	c.WithSigners(p.arbiter).InvokeFail(t, bazaar.ErrAlreadyResolved, "resolve", 0, false)

	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "dispute", 1)
	c.WithSigners(p.arbiter).Invoke(t, stackitem.Null{}, "resolve", 1, false)
	require.EqualValues(t, bazaar.StateResolved, auditState(t, c, 1))
	require.EqualValues(t, initialBalance-auditPrice, balanceOf(t, cTok, p.requester.ScriptHash()))
	require.EqualValues(t, 0, balanceOf(t, cTok, c.Hash))
}

func TestExtension(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	requestAudit(t, c, p, 0)
	assignAuditor(t, c, p, 0)
	d0 := auditDeadline(t, c, 0)

	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrUnauthorized, "requestExtension", 0, d0+msPerHour, 10)

	cAud := c.WithSigners(p.auditor)
	cAud.InvokeFail(t, bazaar.ErrInvalidHaircut, "requestExtension", 0, d0+msPerHour, 100)
	cAud.InvokeFail(t, bazaar.ErrInvalidHaircut, "requestExtension", 0, d0+msPerHour, -1)
	cAud.InvokeFail(t, bazaar.ErrInvalidDeadline, "requestExtension", 0, d0-1, 10)

	_, err := c.TestInvoke(t, "getExtension", 0)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), bazaar.ErrNoExtension))

	cAud.Invoke(t, stackitem.Null{}, "requestExtension", 0, d0+msPerHour, 20)
	// a repeated request overwrites the pending one
	cAud.Invoke(t, stackitem.Null{}, "requestExtension", 0, d0+2*msPerHour, 10)

	s, err := c.TestInvoke(t, "getExtension", 0)
	require.NoError(t, err)
	ext, ok := s.Top().Value().([]stackitem.Item)
	require.True(t, ok)
	require.Len(t, ext, 2)
	newDeadline, err := ext[0].TryInteger()
	require.NoError(t, err)
	require.EqualValues(t, d0+2*msPerHour, newDeadline.Int64())
	haircut, err := ext[1].TryInteger()
	require.NoError(t, err)
	require.EqualValues(t, 10, haircut.Int64())

	cAud.InvokeFail(t, bazaar.ErrUnauthorized, "approveExtension", 0)

	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "approveExtension", 0)
	cut := int64(auditPrice * 10 / 100)
	require.EqualValues(t, auditPrice-cut, escrowOf(t, c, 0))
	require.EqualValues(t, auditPrice-cut, auditIntField(t, c, 0, 4))
	require.EqualValues(t, d0+2*msPerHour, auditDeadline(t, c, 0))
	require.EqualValues(t, int64(initialBalance-auditPrice)+cut, balanceOf(t, cTok, p.requester.ScriptHash()))

	_, err = c.TestInvoke(t, "getExtension", 0)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), bazaar.ErrNoExtension))
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrNoExtension, "approveExtension", 0)

	// the haircut sticks on payout
	cAud.Invoke(t, stackitem.Null{}, "startWork", 0)
	cAud.Invoke(t, stackitem.Null{}, "submitAudit", 0, randomReportRef())
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "approveAudit", 0)
	require.EqualValues(t, auditPrice-cut, balanceOf(t, cTok, p.auditor.ScriptHash()))
	require.EqualValues(t, 0, balanceOf(t, cTok, c.Hash))
}

func TestExpireAudit(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	requestAudit(t, c, p, 0)
	cReq := c.WithSigners(p.requester)

	// unassigned audits are reclaimed via cancelAudit
	cReq.InvokeFail(t, bazaar.ErrInvalidState, "expireAudit", 0)

	assignAuditor(t, c, p, 0)
	cAud := c.WithSigners(p.auditor)
	cAud.Invoke(t, stackitem.Null{}, "startWork", 0)
	d0 := auditDeadline(t, c, 0)

	cReq.InvokeFail(t, bazaar.ErrDeadlineNotPassed, "expireAudit", 0)
	cAud.InvokeFail(t, bazaar.ErrUnauthorized, "expireAudit", 0)

	b := c.NewUnsignedBlock(t)
	b.Timestamp = uint64(d0) + 1000
	require.NoError(t, c.Chain.AddBlock(c.SignBlock(b)))

	cAud.InvokeFail(t, bazaar.ErrDeadlinePassed, "submitAudit", 0, randomReportRef())

	cReq.Invoke(t, stackitem.Null{}, "expireAudit", 0)
	require.EqualValues(t, bazaar.StateRefunded, auditState(t, c, 0))
	require.EqualValues(t, 0, escrowOf(t, c, 0))
	require.EqualValues(t, initialBalance, balanceOf(t, cTok, p.requester.ScriptHash()))

	cReq.InvokeFail(t, bazaar.ErrAlreadyResolved, "expireAudit", 0)
}

func TestListAudits(t *testing.T) {
	c, cTok := newBazaarInvoker(t)
	p := newAuditParties(t, c, cTok)

	requestAudit(t, c, p, 0)
	requestAudit(t, c, p, 1)
	requestAudit(t, c, p, 2)
	assignAuditor(t, c, p, 1)

	s, err := c.TestInvoke(t, "listAudits")
	require.NoError(t, err)
	iter, ok := s.Top().Value().(*storage.Iterator)
	require.True(t, ok)
	items := iteratorToArray(iter)
	require.Len(t, items, 3)
	for i := range items {
		id, err := items[i].TryInteger()
		require.NoError(t, err)
		require.EqualValues(t, i, id.Int64())
	}

	s, err = c.TestInvoke(t, "listAuditsByState", bazaar.StateRequested)
	require.NoError(t, err)
	requested := s.Top().Array()
	require.Len(t, requested, 2)
	for i, expected := range []int64{0, 2} {
		id, err := requested[i].TryInteger()
		require.NoError(t, err)
		require.Equal(t, expected, id.Int64())
	}

	s, err = c.TestInvoke(t, "listAuditsByState", bazaar.StateAssigned)
	require.NoError(t, err)
	assigned := s.Top().Array()
	require.Len(t, assigned, 1)
	id, err := assigned[0].TryInteger()
	require.NoError(t, err)
	require.EqualValues(t, 1, id.Int64())
}

func TestSettlementReentry(t *testing.T) {
	e := newExecutor(t)
	ctrTok := neotest.CompileFile(t, e.CommitteeHash, reenterPath, path.Join(reenterPath, "config.yml"))
	e.DeployContract(t, ctrTok, nil)
	h := deployBazaarContract(t, e, ctrTok.Hash)
	c := e.CommitteeInvoker(h)
	cTok := e.CommitteeInvoker(ctrTok.Hash)

	p := auditParties{
		requester: c.NewAccount(t),
		auditor:   c.NewAccount(t),
		arbiter:   c.NewAccount(t),
	}
	runToSubmitted(t, c, p, 0)

	// the payout transfer calls back into approveAudit, which must observe
	// the already stored terminal state
	cTok.Invoke(t, stackitem.Null{}, "arm", h, "approveAudit", 0)
	c.WithSigners(p.requester).InvokeFail(t, bazaar.ErrAlreadyResolved, "approveAudit", 0)

	// the fault rolled the transition back, so the audit can still be settled
	require.EqualValues(t, bazaar.StateSubmitted, auditState(t, c, 0))
	require.EqualValues(t, auditPrice, escrowOf(t, c, 0))

	cTok.Invoke(t, stackitem.Null{}, "disarm")
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "approveAudit", 0)
	require.EqualValues(t, bazaar.StateCompleted, auditState(t, c, 0))

	// same ordering on the dispute path
	runToSubmitted(t, c, p, 1)
	c.WithSigners(p.requester).Invoke(t, stackitem.Null{}, "dispute", 1)
	cTok.Invoke(t, stackitem.Null{}, "arm", h, "approveAudit", 1)
	c.WithSigners(p.arbiter).InvokeFail(t, bazaar.ErrAlreadyResolved, "resolve", 1, true)
	require.EqualValues(t, bazaar.StateDisputed, auditState(t, c, 1))
	require.EqualValues(t, auditPrice, escrowOf(t, c, 1))

	cTok.Invoke(t, stackitem.Null{}, "disarm")
	c.WithSigners(p.arbiter).Invoke(t, stackitem.Null{}, "resolve", 1, true)
	require.EqualValues(t, bazaar.StateResolved, auditState(t, c, 1))
}

func TestGetAuditNotFound(t *testing.T) {
	c, _ := newBazaarInvoker(t)

	_, err := c.TestInvoke(t, "getAudit", 0)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), bazaar.ErrNotFound))

	c.InvokeFail(t, bazaar.ErrNotFound, "cancelAudit", 0)
}
