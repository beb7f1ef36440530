package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/metrics"
	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/runner"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("http-addr", ":8090", "HTTP control API listen address")
	f.String("grpc-addr", ":50051", "gRPC control API listen address")
	_ = viper.BindPFlag("http_addr", f.Lookup("http-addr"))
	_ = viper.BindPFlag("grpc_addr", f.Lookup("grpc-addr"))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the load generator as a daemon controlled over HTTP and gRPC",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, viper.GetString("http_addr"), viper.GetString("grpc_addr"))
	},
}

func serve(ctx context.Context, httpAddr, grpcAddr string) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	store := runner.NewRunStore()
	executor := runner.NewRunExecutor(store, runner.WithExporter(metrics.NewExporter()))

	grpcServer := grpc.NewServer()
	runner.RegisterLoadControlServer(grpcServer, runner.NewLoadControlGRPCServer(store, executor))

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           runner.NewHTTPServer(store, executor).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	executor.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	return nil
}
