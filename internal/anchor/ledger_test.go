package anchor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcert/fieldcert/internal/cert"
)

func TestHTTPLedgerSubmitTransaction(t *testing.T) {
	var gotAuth string
	var gotReq submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/transactions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(submitResponse{TxRef: "0xfeed"})
	}))
	defer srv.Close()

	l := NewHTTPLedger(srv.URL, "secret", "contract-1")
	txRef, err := l.SubmitTransaction(context.Background(), []byte("digest-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", txRef)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "contract-1", gotReq.Contract)
	assert.Equal(t, "digest-bytes", gotReq.Payload)
}

func TestHTTPLedgerSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "empty tx ref",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(submitResponse{})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			l := NewHTTPLedger(srv.URL, "secret", "contract-1")
			_, err := l.SubmitTransaction(context.Background(), []byte("digest"))
			require.Error(t, err)
			assert.Equal(t, cert.ErrCodeAnchorTransport, cert.CodeOf(err))
		})
	}
}

func TestHTTPLedgerBlockHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/height", r.URL.Path)
		json.NewEncoder(w).Encode(heightResponse{Height: 1234})
	}))
	defer srv.Close()

	l := NewHTTPLedger(srv.URL, "secret", "contract-1")
	height, err := l.BlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), height)
}

func TestHTTPLedgerUnreachable(t *testing.T) {
	l := NewHTTPLedger("http://127.0.0.1:0", "secret", "contract-1")
	_, err := l.SubmitTransaction(context.Background(), []byte("digest"))
	require.Error(t, err)
	assert.Equal(t, cert.ErrCodeAnchorTransport, cert.CodeOf(err))
}
