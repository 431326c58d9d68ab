package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoppen/freqdash/internal/api"
	"github.com/ecoppen/freqdash/internal/exchange"
)

func TestNewServerUsesConfiguredPort(t *testing.T) {
	srv := newServer(8090, nil)
	assert.Equal(t, ":8090", srv.Addr)
}

func TestServerServesRoutesAndShutsDownCleanly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api.SetupRoutes(router, api.NewHandler(nil, nil, nil, exchange.NewRegistry()))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := newServer(0, router)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(listener)
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/health", listener.Addr()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
