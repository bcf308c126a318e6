package reenter

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	targetKey = "target"
	methodKey = "method"
	idKey     = "id"
)

// Arm makes the next Transfer call the method on the target contract with
// the given id before returning. Used to exercise settlement ordering of
// contracts that hold funds on this token.
func Arm(target interop.Hash160, method string, id int) {
	ctx := storage.GetContext()
	storage.Put(ctx, targetKey, target)
	storage.Put(ctx, methodKey, method)
	storage.Put(ctx, idKey, id)
}

// Disarm clears the call stored by Arm.
func Disarm() {
	ctx := storage.GetContext()
	storage.Delete(ctx, targetKey)
	storage.Delete(ctx, methodKey)
	storage.Delete(ctx, idKey)
}

// Transfer accepts any transfer, performing the armed callback first. The
// stub keeps no ledger.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	ctx := storage.GetContext()
	target := storage.Get(ctx, targetKey)
	if target != nil {
		method := storage.Get(ctx, methodKey).(string)
		id := storage.Get(ctx, idKey).(int)
		contract.Call(target.(interop.Hash160), method, contract.All, id)
	}

	return true
}

// BalanceOf always reports an empty account.
func BalanceOf(account interop.Hash160) int {
	return 0
}
