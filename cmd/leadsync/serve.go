package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/leadsync/httpapi"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
	"github.com/hazyhaar/leadsync/selector"
)

const version = "0.1.0"

// newMCPServer exposes the classifier, the synthesizer and the registry as
// MCP tools.
func newMCPServer(reg *schema.Registry, synth *selector.Synthesizer) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "leadsync", Version: version}, nil)
	pagetype.RegisterMCP(srv)
	synth.RegisterMCP(srv)
	reg.RegisterMCP(srv)
	return srv
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the schema authoring API over HTTP, with MCP at /mcp",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		synth := selector.New(selector.WithLogger(logger))

		api := httpapi.New(httpapi.Config{
			Registry:    reg,
			Synthesizer: synth,
			JWTSecret:   []byte(cfg.HTTP.JWTSecret),
			RequireAuth: cfg.HTTP.RequireAuth,
			MCP:         newMCPServer(reg, synth),
			Logger:      logger,
		})
		srv := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		logger.Info("leadsync: serving", "addr", cfg.HTTP.Listen, "schema_db", cfg.Storage.SchemaDB)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("leadsync: shut down")
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()
		srv := newMCPServer(reg, selector.New(selector.WithLogger(logger)))
		return srv.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
