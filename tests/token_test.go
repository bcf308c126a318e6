package tests

import (
	"path"
	"testing"

	"github.com/auditbazaar/auditbazaar-contract/common"
	"github.com/auditbazaar/auditbazaar-contract/token"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const tokenPath = "../token"

func deployTokenContract(t *testing.T, e *neotest.Executor) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, tokenPath, path.Join(tokenPath, "config.yml"))
	args := []interface{}{e.CommitteeHash}
	e.DeployContract(t, c, args)
	return c.Hash
}

func newTokenInvoker(t *testing.T) *neotest.ContractInvoker {
	e := newExecutor(t)
	h := deployTokenContract(t, e)
	return e.CommitteeInvoker(h)
}

func balanceOf(t *testing.T, cTok *neotest.ContractInvoker, acc util.Uint160) int64 {
	s, err := cTok.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return s.Top().BigInt().Int64()
}

func TestTokenVersion(t *testing.T) {
	c := newTokenInvoker(t)
	c.Invoke(t, common.Version, "version")
}

func TestTokenInfo(t *testing.T) {
	c := newTokenInvoker(t)
	c.Invoke(t, "BZT", "symbol")
	c.Invoke(t, 8, "decimals")
	c.Invoke(t, 0, "totalSupply")
}

func TestTokenMintBurn(t *testing.T) {
	c := newTokenInvoker(t)
	acc := c.NewAccount(t)

	c.WithSigners(acc).InvokeFail(t, token.ErrMintAccess, "mint", acc.ScriptHash(), 100)

	c.Invoke(t, stackitem.Null{}, "mint", acc.ScriptHash(), 100)
	require.EqualValues(t, 100, balanceOf(t, c, acc.ScriptHash()))
	c.Invoke(t, 100, "totalSupply")

	c.WithSigners(acc).InvokeFail(t, token.ErrBurnAccess, "burn", acc.ScriptHash(), 10)
	c.InvokeFail(t, token.ErrTransferFailed, "burn", acc.ScriptHash(), 200)

	c.Invoke(t, stackitem.Null{}, "burn", acc.ScriptHash(), 40)
	require.EqualValues(t, 60, balanceOf(t, c, acc.ScriptHash()))
	c.Invoke(t, 60, "totalSupply")
}

func TestTokenTransfer(t *testing.T) {
	c := newTokenInvoker(t)
	from := c.NewAccount(t)
	to := c.NewAccount(t)

	c.Invoke(t, stackitem.Null{}, "mint", from.ScriptHash(), 100)

	cFrom := c.WithSigners(from)
	cFrom.Invoke(t, true, "transfer", from.ScriptHash(), to.ScriptHash(), 30, nil)
	require.EqualValues(t, 70, balanceOf(t, c, from.ScriptHash()))
	require.EqualValues(t, 30, balanceOf(t, c, to.ScriptHash()))

	// sender witness is required
	c.WithSigners(to).Invoke(t, false, "transfer", from.ScriptHash(), to.ScriptHash(), 10, nil)

	cFrom.Invoke(t, false, "transfer", from.ScriptHash(), to.ScriptHash(), -1, nil)
	cFrom.Invoke(t, false, "transfer", from.ScriptHash(), to.ScriptHash(), 1000, nil)
	require.EqualValues(t, 70, balanceOf(t, c, from.ScriptHash()))
}
