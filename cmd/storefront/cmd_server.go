package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/app"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/internal/server"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

var noGRPC bool

// storefront serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		k, err := kernel.NewHTTPKernel(a)
		if err != nil {
			return err
		}
		defer k.Stop()

		cfg := server.Config{HTTPAddr: net.JoinHostPort("", config.AppPort())}
		if !noGRPC {
			cfg.GRPCAddr = net.JoinHostPort("", config.GRPCPort())
		}
		return server.Run(ctx, cfg, k.Handler())
	},
}

// storefront route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List the API routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Handlers are never invoked, so nothing needs to be connected.
		r := router.New()
		routes.RegisterAPI(r, routes.API{})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noGRPC, "no-grpc", false, "serve HTTP only")
}
