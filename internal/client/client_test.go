package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProxyBackend(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	data := map[string]string{"foo": "bar"}
	nodes := 0

	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		data[r.FormValue("key")] = r.FormValue("val")
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/del", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		delete(data, r.FormValue("key"))
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		v, ok := data[r.URL.Query().Get("key")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(v))
	})
	mux.HandleFunc("/add_node", func(w http.ResponseWriter, r *http.Request) {
		nodes++
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/remove_node", func(w http.ResponseWriter, r *http.Request) {
		nodes--
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","node_count":` + itoa(nodes) + `}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL, 0)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestClientPutGetDelete(t *testing.T) {
	_, c := newTestProxyBackend(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", "v"))
	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientAddAndRemoveNode(t *testing.T) {
	_, c := newTestProxyBackend(t)
	ctx := context.Background()

	require.NoError(t, c.AddNode(ctx, "127.0.0.1:9001"))
	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.NodeCount)

	require.NoError(t, c.RemoveNode(ctx, "127.0.0.1:9001"))
	st, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.NodeCount)
}
