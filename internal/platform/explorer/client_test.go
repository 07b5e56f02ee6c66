package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractCreationTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "contract", q.Get("module"))
		assert.Equal(t, "getcontractcreation", q.Get("action"))
		assert.Equal(t, "0xaaa", q.Get("contractaddresses"))
		assert.Equal(t, "test-key", q.Get("apikey"))
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [{
				"contractAddress": "0xaaa",
				"contractCreator": "0xbbb",
				"txHash": "0xccc",
				"timeStamp": "1767225600"
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	created, err := c.ContractCreationTime(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), created)
}

func TestContractCreationTimeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No data found","result":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ContractCreationTime(context.Background(), "0xaaa")
	assert.Error(t, err)
}

func TestContractCreationTimeMalformedTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"timeStamp":"not-a-number"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ContractCreationTime(context.Background(), "0xaaa")
	assert.Error(t, err)
}

func TestContractCreationTimeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").ContractCreationTime(context.Background(), "0xaaa")
	assert.Error(t, err)
}
