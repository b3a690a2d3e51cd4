// Command conduit-recv is the consumer-side CLI: it connects to a
// producer's rendezvous socket, maps the shared-memory segment it is
// told about, and copies the stream to stdout until the producer ends
// or disconnects it.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/agilira/conduit"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	ConfigPath       string
	SocketPath       string
	HandshakeTimeout time.Duration
	LogLevel         string
}

var rootCmd = &cobra.Command{
	Use:   "conduit-recv",
	Short: "Consume a shared-memory byte stream from a single producer",
	Run: func(rawCmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to an optional YAML configuration file")
	flags.StringVar(&cmd.SocketPath, "socket", "/tmp/conduit.sock", "Unix-domain socket path for the rendezvous handshake")
	flags.DurationVar(&cmd.HandshakeTimeout, "handshake-timeout", 5*time.Second, "Deadline for the producer to attach")
	flags.StringVar(&cmd.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg := conduit.DefaultCLIConfig()
	if cmd.ConfigPath != "" {
		loaded, err := conduit.LoadCLIConfig(cmd.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.HandshakeTimeout = cmd.HandshakeTimeout

	level, err := zapLevel(cmd.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse --log-level: %w", err)
	}

	log, _, err := conduit.InitLogging(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return receive(ctx, cmd, cfg, log)
	})
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

func receive(ctx context.Context, cmd Cmd, cfg *conduit.CLIConfig, log *zap.SugaredLogger) error {
	conn, err := net.Dial("unix", cmd.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to %q: %w", cmd.SocketPath, err)
	}
	defer conn.Close()

	name, size, err := conduit.ReceiveRendezvous(conn)
	if err != nil {
		return fmt.Errorf("failed to read rendezvous message: %w", err)
	}
	log.Infow("received rendezvous", "name", name, "size", size)

	segment, err := conduit.Open(name, int64(size))
	if err != nil {
		return fmt.Errorf("failed to map shared memory segment: %w", err)
	}
	defer segment.Close()

	consumer, err := conduit.AttachConsumer(segment.Bytes(), conduit.WithErrorCallback(func(op string, err error) {
		log.Warnw("consumer operation failed", "op", op, "error", err)
	}))
	if err != nil {
		return fmt.Errorf("failed to attach consumer: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := consumer.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	log.Infow("handshake complete, streaming to stdout")

	buf := make([]byte, 64*1024)
	for {
		n, err := consumer.ReadSome(ctx, buf)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing stdout: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, conduit.ErrEnded) {
				log.Infow("stream ended")
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
	}
}

func zapLevel(name string) (zapcore.Level, error) {
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(name))
	return lvl, err
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received
// or the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
