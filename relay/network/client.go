package network

import (
	"context"
	"encoding/json"
	"time"
)

// Query is a paid query against the downstream network.
type Query struct {
	// Kind names the query type, e.g. "ContractCallQuery".
	Kind string `json:"kind"`
	// Payload is the encoded query body, opaque to the relay core.
	Payload []byte `json:"payload"`
}

// Response is the result of a paid query.
type Response struct {
	Payload []byte `json:"payload"`
	// Cost is the amount actually charged, in the smallest currency unit.
	Cost int64 `json:"cost"`
}

// Record is a structured record read from the network. A record is mature
// once every position-in-ledger field is populated.
type Record struct {
	ID                 string          `json:"id"`
	ConsensusTimestamp string          `json:"consensus_timestamp,omitempty"`
	BlockNumber        *int64          `json:"block_number,omitempty"`
	BlockHash          string          `json:"block_hash,omitempty"`
	TransactionIndex   *int64          `json:"transaction_index,omitempty"`
	Result             string          `json:"result,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// IsMature reports whether r carries all ledger-position fields.
func IsMature(r *Record) bool {
	return r != nil &&
		r.ConsensusTimestamp != "" &&
		r.BlockNumber != nil &&
		r.BlockHash != "" &&
		r.TransactionIndex != nil
}

// Client is a handle onto the downstream network.
type Client interface {
	// ExecuteQuery runs a paid query offering at most maxPayment. A
	// rejection is returned as *Rejection.
	ExecuteQuery(ctx context.Context, q Query, maxPayment int64) (*Response, error)

	// GetRecord reads a record. Absent records return ErrNotFound.
	GetRecord(ctx context.Context, kind, id string) (*Record, error)

	// SetRequestTimeout bounds every request issued through the handle.
	SetRequestTimeout(d time.Duration)
}

// Config identifies the downstream network.
type Config struct {
	// Network is a well-known network name (mainnet, testnet, previewnet, local)
	// used when Nodes is empty.
	Network string `yaml:"network" json:"network" env:"NETWORK"`

	// Nodes maps node address to node account id.
	Nodes map[string]string `yaml:"nodes" json:"nodes"`

	// MirrorURL is the REST read endpoint.
	MirrorURL string `yaml:"mirror_url" json:"mirror_url" env:"MIRROR_URL"`

	// RequestTimeout is applied to every new client handle.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// Factory builds a client handle for a network and operator. It must only
// construct the handle; connections are expected to be opened lazily.
type Factory func(cfg Config, operator *Operator) (Client, error)
