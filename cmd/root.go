// Package cmd provides the command-line interface for the sqlgate server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/conn"
	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateway"
	"github.com/sqlgate/sqlgate/internal/logging"
	"github.com/sqlgate/sqlgate/internal/mcp"
)

var rootCmd = &cobra.Command{
	Use:           "sqlgate",
	Short:         "Controlled SQL gateway over MCP",
	Long:          `sqlgate exposes a database to MCP clients through a constrained tool surface: schema introspection and policy-checked query execution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// Execute runs the root command. Startup failures exit non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[sqlgate] ERROR %s\n", logging.Mask(err.Error()))
		os.Exit(1)
	}
}

func runServer() error {
	log := logging.New("sqlgate")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	d, err := dialect.ForDriver(cfg.Driver)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Errorf("received shutdown signal")
		cancel()
	}()

	manager, err := conn.Open(ctx, cfg, d, log)
	if err != nil {
		return err
	}
	defer manager.Close()

	gw := gateway.New(cfg, d, manager, log)
	server := mcp.NewServer(ctx, gw, log)

	mode := "read-only"
	if cfg.Admin {
		mode = "admin"
	} else if cfg.ReadWrite {
		mode = "read-write"
	}
	log.Infof("connected to %s (%s, %s mode)", cfg.Endpoint(), cfg.Driver, mode)

	if err := server.Run(); err != nil {
		if err == context.Canceled {
			log.Infof("server shutdown gracefully")
			return nil
		}
		return err
	}
	return nil
}
