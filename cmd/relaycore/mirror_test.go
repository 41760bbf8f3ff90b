package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/types"
)

func newTestMirror(t *testing.T, handler http.HandlerFunc) network.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := newMirrorClient(network.Config{MirrorURL: srv.URL + "/"}, nil)
	require.NoError(t, err)
	return client
}

func TestNewMirrorClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://mirror", "not a url", "http://"} {
		_, err := newMirrorClient(network.Config{MirrorURL: raw}, nil)
		assert.Error(t, err, raw)
	}
}

func TestMirrorClient_GetRecord(t *testing.T) {
	client := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/contracts/results/0.0.1002-1700000000-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"consensus_timestamp":"1700000000.000000001","block_number":7,` +
			`"block_hash":"0xabc","transaction_index":0,"result":"SUCCESS"}`))
	})

	rec, err := client.GetRecord(context.Background(), "contracts/results", "0.0.1002-1700000000-1")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1002-1700000000-1", rec.ID)
	assert.True(t, network.IsMature(rec))
	assert.NotEmpty(t, rec.Raw)
}

func TestMirrorClient_NotFound(t *testing.T) {
	client := newTestMirror(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetRecord(context.Background(), "transactions", "tx")
	assert.True(t, network.IsNotFound(err))
}

func TestMirrorClient_ServerError(t *testing.T) {
	client := newTestMirror(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetRecord(context.Background(), "transactions", "tx")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUpstreamError))
	assert.True(t, types.IsRetryable(err))
}

func TestMirrorClient_Timeout(t *testing.T) {
	client := newTestMirror(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client.SetRequestTimeout(20 * time.Millisecond)

	_, err := client.GetRecord(context.Background(), "transactions", "tx")
	assert.True(t, types.IsCode(err, types.ErrUpstreamError))
}

func TestMirrorClient_ExecuteQueryUnsupported(t *testing.T) {
	client := newTestMirror(t, func(http.ResponseWriter, *http.Request) {})

	_, err := client.ExecuteQuery(context.Background(), network.Query{Kind: "ContractCallQuery"}, 100)
	assert.True(t, types.IsCode(err, types.ErrUpstreamError))
}
