package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbeOnceReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	online := probeOnce(context.Background(), srv.URL, time.Second)
	assert.True(t, online)
}

func TestProbeOnceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	online := probeOnce(context.Background(), srv.URL, time.Second)
	assert.False(t, online)
}

func TestProbeOnceUnreachable(t *testing.T) {
	online := probeOnce(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond)
	assert.False(t, online)
}
