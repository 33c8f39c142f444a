package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	goble "github.com/srg/botlink/internal/device/go-ble"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/extensions/catalog"
	"github.com/srg/botlink/internal/session"
	"github.com/srg/botlink/pkg/config"
)

// robot is one extension bound to a go-ble transport, registered in its own
// runtime so scripts and the shell can call its blocks.
type robot struct {
	family  catalog.Family
	ext     extension.Extension
	runtime *extension.Runtime
	cfg     *config.Config
	logger  *logrus.Logger
}

// connectOptions are the flags shared by the commands that talk to a robot.
type connectOptions struct {
	address     string
	scanTimeout time.Duration
}

func addConnectFlags(cmd *cobra.Command, opts *connectOptions) {
	cmd.Flags().StringVarP(&opts.address, "address", "a", "", "Connect to this address instead of the first robot found (e.g. "+exampleDeviceAddress+")")
	cmd.Flags().DurationVar(&opts.scanTimeout, "scan-timeout", 0, "How long to look for the robot (default from config, 10s)")
	cmd.Long += "\n\n" + deviceAddressNote
}

// newRobot builds the extension for id without connecting it.
func newRobot(cmd *cobra.Command, id string) (*robot, error) {
	family, err := catalog.Lookup(id)
	if err != nil {
		return nil, err
	}

	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	ext := family.New(goble.NewTransport(logger), cfg.SessionOptions(), logger)
	rt := extension.NewRuntime(logger)
	if err := rt.Register(ext); err != nil {
		return nil, err
	}

	return &robot{
		family:  family,
		ext:     ext,
		runtime: rt,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// openRobot builds the extension for id and connects it.
func openRobot(ctx context.Context, cmd *cobra.Command, id string, opts connectOptions) (*robot, error) {
	r, err := newRobot(cmd, id)
	if err != nil {
		return nil, err
	}

	timeout := r.cfg.ScanTimeout
	if cmd.Flags().Changed("scan-timeout") && opts.scanTimeout > 0 {
		timeout = opts.scanTimeout
	}

	progress := NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Connecting to "+r.family.Name, "Scanning", timeout, "Connected")
	progress.Start()
	p, err := r.connect(ctx, opts.address, timeout, progress.Callback())
	progress.Stop()
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Connected to %s %s\n", r.family.Name, p.ID)
	return r, nil
}

func (r *robot) session() *session.Session {
	return r.ext.Session()
}

// connect scans and connects to the peripheral at address, or to the first
// one discovered when address is empty.
func (r *robot) connect(ctx context.Context, address string, timeout time.Duration, phase func(string)) (session.Peripheral, error) {
	s := r.session()
	if err := s.Scan(ctx); err != nil {
		return session.Peripheral{}, err
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case p := <-s.Discovered():
			if address != "" && !strings.EqualFold(p.ID, address) {
				r.logger.WithField("address", p.ID).Debug("Skipping peripheral")
				continue
			}

			phase("Connecting")
			r.logger.WithFields(logrus.Fields{
				"address": p.ID,
				"name":    p.Name,
				"rssi":    p.RSSI,
			}).Info("Connecting to peripheral")

			if err := s.Connect(ctx, p.ID); err != nil {
				return p, fmt.Errorf("failed to connect to %s: %w", p.ID, err)
			}
			if !s.IsConnected() {
				return p, ErrNotConnected
			}
			phase("Connected")
			return p, nil

		case err := <-s.Errors():
			_ = s.Disconnect()
			return session.Peripheral{}, err

		case <-scanCtx.Done():
			_ = s.Disconnect()
			if err := ctx.Err(); err != nil {
				return session.Peripheral{}, err
			}
			if address != "" {
				return session.Peripheral{}, fmt.Errorf("%w: %s at %s within %s", ErrNoPeripheral, r.family.Name, address, timeout)
			}
			return session.Peripheral{}, fmt.Errorf("%w: %s advertising service %s within %s", ErrNoPeripheral, r.family.Name, r.family.ServiceUUID, timeout)
		}
	}
}

// Close flushes the safe state and tears the session down.
func (r *robot) Close() {
	r.runtime.StopAll()
}

// watch cancels ctx with the first error the session signals.
func (r *robot) watch(ctx context.Context) (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	go func() {
		select {
		case err := <-r.session().Errors():
			r.logger.WithError(err).Debug("Session signalled an error")
			cancel(err)
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
