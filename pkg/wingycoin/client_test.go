package wingycoin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingyshop/pkg/wingycoin"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *wingycoin.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return wingycoin.NewClient(srv.URL, time.Second)
}

func TestClient_Login(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.Equal(t, "secret", body["password"])

		w.Write([]byte(`{"user":{"id":"ext-1","email":"ann@example.com","wingy":12.5,"completedads":4}}`))
	})

	user, err := client.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ext-1", user.ID)
	assert.Equal(t, 4, user.CompletedAds)
	assert.True(t, decimal.RequireFromString("12.5").Equal(user.Wingy))
}

func TestClient_LoginRejected(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid login credentials"}`))
	})

	_, err := client.Login(context.Background(), "ann@example.com", "wrong")
	var gwErr *wingycoin.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "Invalid login credentials", gwErr.Message)
}

func TestClient_SignupLowercasesUsername(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gopher", body["username"])
		w.Write([]byte(`{"userId":"ext-9"}`))
	})

	id, err := client.Signup(context.Background(), "g@example.com", "secret", "Gopher")
	require.NoError(t, err)
	assert.Equal(t, "ext-9", id)
}

func TestClient_SignupWithoutUserID(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Email already used"}`))
	})

	_, err := client.Signup(context.Background(), "g@example.com", "secret", "gopher")
	var gwErr *wingycoin.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "Email already used", gwErr.Message)
}

func TestClient_CheckBalance(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ext-1", body["userId"])
		w.Write([]byte(`{"wingy":3.125,"completedads":2}`))
	})

	bal, err := client.CheckBalance(context.Background(), "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "3.125", bal.Wingy.String())
	assert.Equal(t, 2, bal.CompletedAds)
}

func TestClient_FailureShapes(t *testing.T) {
	t.Run("PlainTextError", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		})
		_, err := client.CheckBalance(context.Background(), "x")
		var gwErr *wingycoin.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
		assert.Equal(t, "upstream exploded", gwErr.Message)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"wingy":`))
		})
		_, err := client.CheckBalance(context.Background(), "x")
		var gwErr *wingycoin.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, "malformed response body", gwErr.Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		t.Cleanup(srv.Close)
		client := wingycoin.NewClient(srv.URL, 20*time.Millisecond)

		_, err := client.CheckBalance(context.Background(), "x")
		var gwErr *wingycoin.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Zero(t, gwErr.StatusCode)
	})
}
