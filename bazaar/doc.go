/*
Bazaar contract is an on-chain marketplace coordinating paid security audit
engagements between requesters and auditors.

Every audit is funded up front: requestAudit pulls the agreed amount of the
settlement token (a NEP-17 contract fixed at deploy) from the requester into
the contract account and keeps it locked against the audit id until a
terminal lifecycle transition disburses it. Audit ids are assigned from a
strictly increasing counter and records are never deleted, terminal states
are retained as history.

The lifecycle is a fixed state machine:

	Requested -> Assigned -> InProgress -> Submitted -> Completed
	Submitted -> Disputed -> Resolved
	Requested -> Cancelled
	Assigned/InProgress/Submitted/Disputed -> Refunded (deadline expiry)

Disbursing transitions store the terminal state and decrease the escrow
ledger before the token contract is called, so a reentrant invocation made
from the token transfer observes the already settled audit and is rejected.

While working, the auditor may propose a deadline extension in exchange for
a haircut percentage of the locked amount; the requester approves it with
approveExtension which immediately refunds the haircut share.

Contract notifications

AuditRequested notification. Produced when a new audit is created and funded.

	AuditRequested:
	  - name: id
	    type: Integer
	  - name: requester
	    type: Hash160
	  - name: amount
	    type: Integer

AuditAssigned notification. Produced when an auditor is assigned.

	AuditAssigned:
	  - name: id
	    type: Integer
	  - name: auditor
	    type: Hash160

WorkStarted notification. Produced when the auditor starts working.

	WorkStarted:
	  - name: id
	    type: Integer

AuditSubmitted notification. Produced when the report reference is stored.

	AuditSubmitted:
	  - name: id
	    type: Integer
	  - name: reportRef
	    type: ByteArray

AuditCompleted notification. Produced when the requester approves the report
and the escrow is paid out to the auditor.

	AuditCompleted:
	  - name: id
	    type: Integer
	  - name: auditor
	    type: Hash160
	  - name: amount
	    type: Integer

AuditDisputed notification. Produced when the requester disputes the report.

	AuditDisputed:
	  - name: id
	    type: Integer

AuditResolved notification. Produced when the arbiter settles a dispute.

	AuditResolved:
	  - name: id
	    type: Integer
	  - name: favorAuditor
	    type: Boolean

AuditCancelled notification. Produced when an unassigned audit is cancelled.

	AuditCancelled:
	  - name: id
	    type: Integer

AuditRefunded notification. Produced when an expired audit is reclaimed.

	AuditRefunded:
	  - name: id
	    type: Integer
	  - name: amount
	    type: Integer

ExtensionRequested notification. Produced when the auditor asks for more time.

	ExtensionRequested:
	  - name: id
	    type: Integer
	  - name: newDeadline
	    type: Integer
	  - name: haircut
	    type: Integer

ExtensionApproved notification. Produced when the requester approves the
pending extension request.

	ExtensionApproved:
	  - name: id
	    type: Integer
	  - name: newDeadline
	    type: Integer
	  - name: amount
	    type: Integer

TokenLocked notification. Produced when tokens are locked in escrow.

	TokenLocked:
	  - name: id
	    type: Integer
	  - name: from
	    type: Hash160
	  - name: amount
	    type: Integer

TokenReleased notification. Produced when escrowed tokens leave the contract,
either as a payout, a refund or a haircut.

	TokenReleased:
	  - name: id
	    type: Integer
	  - name: to
	    type: Hash160
	  - name: amount
	    type: Integer
*/
package bazaar
