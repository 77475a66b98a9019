package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testCertPEM = []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")

func TestSink_WriteStdout(t *testing.T) {
	t.Run("raw PEM", func(t *testing.T) {
		var buf bytes.Buffer
		s := New(Options{Stdout: &buf})

		target, err := ParseTarget("stdout")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, testCertPEM, buf.Bytes())
	})

	t.Run("JSON with custom field", func(t *testing.T) {
		var buf bytes.Buffer
		s := New(Options{Stdout: &buf})

		target, err := ParseTarget("json:myCert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))

		var payload map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
		require.Len(t, payload, 1)
		require.True(t, strings.HasPrefix(payload["myCert"], "-----BEGIN CERTIFICATE-----"))
	})

	t.Run("JSON default field", func(t *testing.T) {
		var buf bytes.Buffer
		s := New(Options{Stdout: &buf})

		target, err := ParseTarget("json")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))

		var payload map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
		require.Contains(t, payload, DefaultJSONField)
	})
}

func TestSink_WriteFile(t *testing.T) {
	t.Run("raw PEM overwrites", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cert.pem")
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

		s := New(Options{})
		target, err := ParseTarget("file:" + path)
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, testCertPEM, got)
	})

	t.Run("JSON wrapped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cert.json")

		s := New(Options{})
		target, err := ParseTarget("file:json:" + path + "|bundle")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))

		got, err := os.ReadFile(path)
		require.NoError(t, err)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(got, &payload))
		require.Equal(t, string(testCertPEM), payload["bundle"])
	})
}

func TestSink_WriteHTTP(t *testing.T) {
	t.Run("raw POST", func(t *testing.T) {
		var gotBody []byte
		var gotContentType string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		s := New(Options{})
		target, err := ParseTarget(server.URL)
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, testCertPEM, gotBody)
		require.Equal(t, "application/x-pem-file", gotContentType)
	})

	t.Run("JSON POST", func(t *testing.T) {
		var gotContentType string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
		}))
		defer server.Close()

		s := New(Options{})
		target, err := ParseTarget("http:json:" + server.URL + "|myCert")
		require.NoError(t, err)

		require.NoError(t, s.Write(context.Background(), target, testCertPEM))
		require.Equal(t, "application/json", gotContentType)
	})

	t.Run("non-2xx status is a write failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		s := New(Options{})
		target, err := ParseTarget(server.URL)
		require.NoError(t, err)

		err = s.Write(context.Background(), target, testCertPEM)
		require.Error(t, err)
		require.Contains(t, err.Error(), "403")
	})
}
