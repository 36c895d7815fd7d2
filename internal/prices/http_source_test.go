package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/httputil"
)

func TestHTTPSource_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Date,Symbol,Close\n" +
			"2024-01-02,A,10\n2024-01-02,IDX,100\n" +
			"2024-01-03,A,11\n2024-01-03,IDX,101\n"))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, nil, nil)
	m, err := src.Load(context.Background(), contracts.PriceQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, []string{"A", "IDX"}, m.Symbols())
}

func TestHTTPSource_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("Day,Ticker,Px\n2024-01-02,A,10\n"))
	}))
	defer server.Close()

	client := httputil.New(nil).WithRetry(0, time.Millisecond)

	_, err := NewHTTPSource(server.URL+"/missing.csv", client, nil).Load(context.Background(), contracts.PriceQuery{})
	var statusErr *httputil.StatusError
	assert.ErrorAs(t, err, &statusErr)

	_, err = NewHTTPSource(server.URL+"/bad.csv", client, nil).Load(context.Background(), contracts.PriceQuery{})
	assert.ErrorIs(t, err, ErrMalformedInput)
}
