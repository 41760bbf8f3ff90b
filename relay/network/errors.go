package network

import (
	"errors"
	"fmt"
)

// Status is a downstream response status code.
type Status int

// Well-known status codes.
const (
	StatusOK                            Status = 0
	StatusInvalidTransaction            Status = 1
	StatusInvalidSignature              Status = 7
	StatusInsufficientTxFee             Status = 9
	StatusInsufficientPayerBalance      Status = 10
	StatusDuplicateTransaction          Status = 11
	StatusBusy                          Status = 12
	StatusPlatformTransactionNotCreated Status = 21
	StatusPlatformNotActive             Status = 50
)

var statusNames = map[Status]string{
	StatusOK:                            "OK",
	StatusInvalidTransaction:            "INVALID_TRANSACTION",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusInsufficientTxFee:             "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:      "INSUFFICIENT_PAYER_BALANCE",
	StatusDuplicateTransaction:          "DUPLICATE_TRANSACTION",
	StatusBusy:                          "BUSY",
	StatusPlatformTransactionNotCreated: "PLATFORM_TRANSACTION_NOT_CREATED",
	StatusPlatformNotActive:             "PLATFORM_NOT_ACTIVE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", int(s))
}

// ErrNotFound is returned by read accessors when the record does not exist (yet).
var ErrNotFound = errors.New("record not found")

// Rejection is a typed downstream rejection of a query or transaction.
type Rejection struct {
	Status  Status
	Message string
	// Cost is the fee quoted by the network, when it reported one.
	Cost int64
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("downstream rejected request: %s", r.Status)
	}
	return fmt.Sprintf("downstream rejected request: %s: %s", r.Status, r.Message)
}

// StatusOf extracts the status code from a *Rejection anywhere in err's chain.
func StatusOf(err error) (Status, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Status, true
	}
	return 0, false
}

// IsInsufficientFee reports whether err is a "fee too low" rejection.
func IsInsufficientFee(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == StatusInsufficientTxFee
}

// IsNotFound reports whether err is the not-found signal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
