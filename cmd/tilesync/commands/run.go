package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"tilesync/internal/app"
	"tilesync/internal/upstream"
	logx "tilesync/pkg/logx"
)

const stopTimeout = 10 * time.Second

func (c *CLI) newRunCmd() *cobra.Command {
	var readings string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the coordinator and the simulated watch face",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), configPath(cmd), readings, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&readings, "readings", "r", "", `JSON lines of readings to ingest ("-" for stdin)`)
	return cmd
}

func runApp(ctx context.Context, cfgPath, readings string, stdin io.Reader) error {
	a, err := app.NewApp(cfgPath, app.Options{})
	if err != nil {
		return err
	}
	log := a.Logger()

	if err := a.Start(ctx); err != nil {
		stop(a, app.StopFatalError)
		return err
	}
	sdNotify(log, daemon.SdNotifyReady)

	g, gctx := errgroup.WithContext(ctx)
	if readings != "" {
		g.Go(func() error {
			rd, closeFn, err := openReadings(readings, stdin)
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := upstream.ReadJSONLines(gctx, rd, a.Receiver())
			log.Info("readings consumed", logx.Int("count", n), logx.String("source", readings))
			return err
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-a.Done():
			return a.Err()
		}
	})

	reason := app.StopSignal
	err = g.Wait()
	if err != nil {
		reason = app.StopFatalError
	}
	sdNotify(log, daemon.SdNotifyStopping)
	stop(a, reason)
	return err
}

func stop(a *app.App, reason app.StopReason) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_ = a.Stop(ctx, reason)
}

func openReadings(src string, stdin io.Reader) (io.Reader, func(), error) {
	if src == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "open readings"), "path", src)
	}
	return f, func() { _ = f.Close() }, nil
}

// sdNotify is a no-op outside systemd.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
