package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchIndex_ParsesFilesAndYankedVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		w.Write([]byte(`{
			"files": [
				{"filename": "flask-3.0.0-py3-none-any.whl", "url": "https://files/flask-3.0.0-py3-none-any.whl", "hashes": {"sha256": "abc"}, "size": 100},
				{"filename": "flask-2.0.0-py3-none-any.whl", "url": "https://files/flask-2.0.0-py3-none-any.whl", "yanked": "superseded"},
				{"filename": "flask-1.0.0-py3-none-any.whl", "url": "https://files/flask-1.0.0-py3-none-any.whl", "yanked": false}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("pysync-test")
	entries, err := c.FetchIndex(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.False(t, entries[0].Yanked)
	assert.Equal(t, "abc", entries[0].Hashes["sha256"])
	assert.True(t, entries[1].Yanked)
	assert.False(t, entries[2].Yanked)
}

func TestFetchIndex_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("pysync-test")
	_, err := c.FetchIndex(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestDownload_ReturnsBodyStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wheel contents"))
	}))
	defer srv.Close()

	c := NewClient("pysync-test")
	rc, err := c.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer rc.Close()
	buf := make([]byte, len("wheel contents"))
	_, err = rc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "wheel contents", string(buf))
}
