/*
Token contract is the default settlement token of the audit bazaar.

It is a NEP-17 compatible contract, so it can be tracked and controlled by
N3 compatible network monitors and wallet software. All marketplace
settlements (escrow locks, payouts, refunds and haircuts) are transfers of
this token unless a deployment configures another NEP-17 contract instead.

Supply is managed by the token owner fixed at deploy: Mint replenishes user
balances, Burn removes them. Besides account owners, a contract owning an
account can transfer from it, which is how the bazaar contract moves the
escrowed funds it holds.

Contract notifications

Transfer notification. This is the NEP-17 standard notification.

	Transfer:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer

TransferX notification. This is an enhanced transfer notification with
details.

	TransferX:
	  - name: from
	    type: Hash160
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: details
	    type: ByteArray

Mint notification. Produced when the owner replenishes a balance.

	Mint:
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer

Burn notification. Produced when the owner reduces a balance.

	Burn:
	  - name: from
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package token
