package nodeclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	data := map[string]string{"foo": "bar"}

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
	mux.HandleFunc("/all", func(w http.ResponseWriter, r *http.Request) {
		for k, v := range data {
			w.Write([]byte(k + "\n" + v + "\n"))
		}
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	addr := strings.TrimPrefix(srv.URL, "http://")
	return srv, New(addr, 0)
}

func TestClientPutGet(t *testing.T) {
	_, c := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", "v"))
	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestClientGetNotFound(t *testing.T) {
	_, c := newTestBackend(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientDelete(t *testing.T) {
	_, c := newTestBackend(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", "v"))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientAllParsesLinePairs(t *testing.T) {
	_, c := newTestBackend(t)
	entries, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "foo", entries[0].Key)
	assert.Equal(t, "bar", entries[0].Value)
}

func TestClientStatus(t *testing.T) {
	_, c := newTestBackend(t)
	assert.NoError(t, c.Status(context.Background()))
}

func TestClientStatusUnreachable(t *testing.T) {
	c := New("127.0.0.1:1", 0)
	err := c.Status(context.Background())
	assert.Error(t, err)
}
