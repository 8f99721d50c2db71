// Command cartserver serves an in-memory shopping cart service for local
// load tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ZhuoyueLian/checkoutload/internal/cartserver"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("cartserver", pflag.ContinueOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	declineRate := fs.Float64("decline-rate", 0.1, "Probability that a checkout is declined (0.0-1.0)")
	affinity := fs.Bool("require-affinity", false, "Reject follow-up requests without the sticky cookie issued at creation")
	cookie := fs.String("affinity-cookie", cartserver.DefaultAffinityCookie, "Name of the sticky session cookie")
	latency := fs.Duration("latency", 0, "Artificial latency added to every request")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *declineRate < 0 || *declineRate > 1 {
		return fmt.Errorf("decline-rate must be between 0.0 and 1.0, got %g", *declineRate)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv := &http.Server{
		Addr: *addr,
		Handler: cartserver.New(cartserver.Options{
			DeclineRate:     *declineRate,
			RequireAffinity: *affinity,
			AffinityCookie:  *cookie,
			Latency:         *latency,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cart service listening", zap.String("addr", *addr), zap.Float64("decline_rate", *declineRate))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
