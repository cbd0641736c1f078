package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tablesync/internal/logging"
	"tablesync/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the WebSocket relay peers connect to with --transport websocket",
	RunE:  runRelay,
}

func init() {
	relayCmd.Flags().Int("relay-port", 8090, "relay listen port")
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, map[string]string{"transport.relay_port": "relay-port"})
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, "tablesync-relay", cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := transport.NewRelay(logger)
	defer relay.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/relay", gin.WrapH(relay))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": relay.Connections()})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Transport.RelayPort),
		Handler: router,
	}
	return serveUntilDone(ctx, server, logger)
}
