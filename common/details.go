package common

var (
	lockPrefix    = []byte{0x01}
	releasePrefix = []byte{0x02}
	refundPrefix  = []byte{0x03}
)

// LockTransferDetails marks a token transfer locking funds in escrow
// for the given audit.
func LockTransferDetails(id int) []byte {
	return append(lockPrefix, IDBytes(id)...)
}

// ReleaseTransferDetails marks a token transfer paying escrowed funds
// out to the auditor.
func ReleaseTransferDetails(id int) []byte {
	return append(releasePrefix, IDBytes(id)...)
}

// RefundTransferDetails marks a token transfer returning escrowed funds
// to the requester.
func RefundTransferDetails(id int) []byte {
	return append(refundPrefix, IDBytes(id)...)
}

// IDBytes converts an audit id into its byte representation used in
// storage keys and transfer details.
func IDBytes(id int) []byte {
	var buf any = id
	return buf.([]byte)
}
