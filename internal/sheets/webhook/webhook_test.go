package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quy/internal/core"
	ports "quy/internal/sheets"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

const endpoint = "https://script.google.com/macros/s/abc/exec"

func TestNew_RejectsForeignEndpoints(t *testing.T) {
	for _, ep := range []string{"", "http://script.google.com/x", "https://example.com", "https://docs.google.com/spreadsheets/d/1"} {
		_, err := New(ep, nil, 0)
		assert.ErrorIs(t, err, ports.ErrUnsupportedEndpoint, ep)
	}
	_, err := New(endpoint, nil, 0)
	assert.NoError(t, err)
}

func TestWriteSnapshot_PostsWholeLedger(t *testing.T) {
	var gotMethod, gotType string
	var got []core.Transaction
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		require.Equal(t, endpoint, r.URL.String())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		// Apps Script answers with a redirect page nobody reads.
		return &http.Response{StatusCode: http.StatusFound, Body: io.NopCloser(strings.NewReader("<html>moved</html>"))}, nil
	})}

	c, err := New(endpoint, hc, 0)
	require.NoError(t, err)

	txs := []core.Transaction{
		{ID: "2", Fund: core.FundParty, Kind: core.Expense, Amount: 20000, Description: "b", Date: "2024-01-02"},
		{ID: "1", Fund: core.FundUnion, Kind: core.Income, Amount: 500000, Description: "a", Date: "2024-01-01", Person: "Lan"},
	}
	require.NoError(t, c.WriteSnapshot(context.Background(), txs))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, txs, got)
}

func TestWriteSnapshot_StatusIsOpaque(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("boom"))}, nil
	})}
	c, err := New(endpoint, hc, 0)
	require.NoError(t, err)
	assert.NoError(t, c.WriteSnapshot(context.Background(), nil))
}

func TestWriteSnapshot_TransportErrorFails(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("network unreachable")
	})}
	c, err := New(endpoint, hc, 0)
	require.NoError(t, err)
	err = c.WriteSnapshot(context.Background(), []core.Transaction{{ID: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network unreachable")
}

func TestResolver(t *testing.T) {
	resolve := Resolver(nil)
	w, err := resolve(endpoint)
	require.NoError(t, err)
	assert.NotNil(t, w)

	_, err = resolve("https://example.com/hook")
	assert.ErrorIs(t, err, ports.ErrUnsupportedEndpoint)
}
