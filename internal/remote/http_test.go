package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juakali/scanflow/internal/model"
)

func snapshotJSON() model.Snapshot {
	return model.Snapshot{
		Code:         "PKG-AB12-20240101",
		State:        model.StateInTransit,
		DeliveryType: model.DeliveryDoorstep,
		Sender:       model.Party{Name: "Amina Odhiambo", Phone: "+254700000001"},
		Receiver:     model.Party{Name: "Brian Mwangi", Phone: "+254700000002"},
		Route:        "Nairobi CBD - Westlands",
		CostCents:    25000,
		CreatedAt:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestFetchPackage(t *testing.T) {
	want := snapshotJSON()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/packages/PKG-AB12-20240101", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL, WithBearerToken("secret"))
	got, err := a.FetchPackage(context.Background(), "PKG-AB12-20240101")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchPackageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	_, err := a.FetchPackage(context.Background(), "PKG-NOPE-20240101")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsNetworkError(err))
}

func TestSubmitAction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/packages/PKG-AB12-20240101/actions", r.URL.Path)

		var req ActionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.ActionDeliver, req.Action)
		assert.Equal(t, "tok-1", req.Token)

		json.NewEncoder(w).Encode(ActionResult{NewState: model.StateDelivered})
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	res, err := a.SubmitAction(context.Background(), ActionRequest{
		Code:   "PKG-AB12-20240101",
		Action: model.ActionDeliver,
		Token:  "tok-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateDelivered, res.NewState)
	assert.False(t, res.AlreadyApplied)
}

func TestSubmitActionApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "package already delivered"})
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	_, err := a.SubmitAction(context.Background(), ActionRequest{Code: "PKG-AB12-20240101"})
	require.Error(t, err)
	require.True(t, IsApplicationError(err))
	assert.False(t, IsNetworkError(err))

	var ae *ApplicationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusConflict, ae.Status)
	assert.Equal(t, "package already delivered", ae.Message)
}

func TestServerErrorIsNetworkError(t *testing.T) {
	// 5xx means the server may recover; the failure must classify as
	// retryable so the action lands in the queue.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	_, err := a.SubmitAction(context.Background(), ActionRequest{Code: "PKG-AB12-20240101"})
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.False(t, IsApplicationError(err))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	a := NewHTTPAuthority(srv.URL)
	_, err := a.FetchPackage(context.Background(), "PKG-AB12-20240101")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestContextCancellationIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	a := NewHTTPAuthority(srv.URL)
	_, err := a.FetchPackage(ctx, "PKG-AB12-20240101")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestSubmitBulk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bulk-actions", r.URL.Path)

		var req BulkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Codes, 2)

		json.NewEncoder(w).Encode([]BulkItemResult{
			{Code: req.Codes[0], Success: true, NewState: model.StateInTransit},
			{Code: req.Codes[1], Success: false, Message: "unknown package"},
		})
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	items, err := a.SubmitBulk(context.Background(), BulkRequest{
		Codes:  []string{"PKG-A1-20240101", "PKG-B2-20240101"},
		Action: model.ActionCollect,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Success)
	assert.False(t, items[1].Success)
	assert.Equal(t, "unknown package", items[1].Message)
}

func TestMalformedResponseIsNetworkError(t *testing.T) {
	// A truncated or garbled body means the response was effectively lost;
	// the idempotency token makes replaying it safe.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	a := NewHTTPAuthority(srv.URL)
	_, err := a.SubmitAction(context.Background(), ActionRequest{Code: "PKG-AB12-20240101"})
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestReadErrorMessageShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message field", body: `{"message":"nope"}`, want: "nope"},
		{name: "error field", body: `{"error":"denied"}`, want: "denied"},
		{name: "raw text", body: "plain refusal\n", want: "plain refusal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewHTTPAuthority(srv.URL)
			_, err := a.SubmitAction(context.Background(), ActionRequest{Code: "PKG-AB12-20240101"})
			var ae *ApplicationError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.want, ae.Message)
		})
	}
}
