// Package network defines the boundary to the downstream ledger network:
// the client handle the relay checks out for every call, the typed
// rejection returned for paid queries, the not-found signal returned by
// read accessors, and operator credential parsing.
//
// The wire protocol of the downstream SDK is not implemented here; a
// concrete Factory is supplied by the embedding application.
package network
