// Command conduit-send is the producer-side CLI: it creates the shared
// memory segment, hands its name and size to a single consumer over a
// Unix-domain rendezvous socket, then streams stdin into the ring until
// EOF or the consumer disconnects.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
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
	SegmentName      string
	RingSize         string
	HandshakeTimeout time.Duration
	Unlink           bool
	LogLevel         string
}

var rootCmd = &cobra.Command{
	Use:   "conduit-send",
	Short: "Produce a shared-memory byte stream for a single consumer",
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
	flags.StringVar(&cmd.SegmentName, "name", "conduit", "Shared-memory segment name (under /dev/shm)")
	flags.StringVar(&cmd.RingSize, "ring-size", "1MB", "Ring data-area size, e.g. 64KB, 4MB")
	flags.DurationVar(&cmd.HandshakeTimeout, "handshake-timeout", 5*time.Second, "Deadline for the consumer to attach")
	flags.BoolVar(&cmd.Unlink, "unlink", true, "Unlink the shared-memory segment once the session ends")
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

	var ringSize datasize.ByteSize
	if err := ringSize.UnmarshalText([]byte(cmd.RingSize)); err != nil {
		return fmt.Errorf("failed to parse --ring-size %q: %w", cmd.RingSize, err)
	}
	cfg.RingSize = int64(ringSize.Bytes())
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
		return serve(ctx, cmd, cfg, log)
	})
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

func serve(ctx context.Context, cmd Cmd, cfg *conduit.CLIConfig, log *zap.SugaredLogger) error {
	_ = os.Remove(cmd.SocketPath)
	listener, err := net.Listen("unix", cmd.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", cmd.SocketPath, err)
	}
	defer listener.Close()

	log.Infow("waiting for consumer", "socket", cmd.SocketPath, "ring_size", cfg.RingSize)

	total := conduit.HeaderedSize(cfg.RingSize)
	segment, err := conduit.Open(cmd.SegmentName, total)
	if err != nil {
		return fmt.Errorf("failed to open shared memory segment: %w", err)
	}
	defer segment.Close()
	if cmd.Unlink {
		defer conduit.Unlink(cmd.SegmentName)
	}

	if err := conduit.Prepare(segment.Bytes()); err != nil {
		return fmt.Errorf("failed to prepare segment header: %w", err)
	}

	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("failed to accept consumer connection: %w", err)
	}
	defer conn.Close()

	if err := conduit.SendRendezvous(conn, segment.Name(), uint64(total)); err != nil {
		return fmt.Errorf("failed to send rendezvous message: %w", err)
	}

	producer, err := conduit.AttachProducer(segment.Bytes(), conduit.WithErrorCallback(func(op string, err error) {
		log.Warnw("producer operation failed", "op", op, "error", err)
	}))
	if err != nil {
		return fmt.Errorf("failed to attach producer: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := producer.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	log.Infow("handshake complete, streaming stdin")

	buf := make([]byte, 64*1024)
	for {
		n, readErr := os.Stdin.Read(buf)
		if n > 0 {
			if err := producer.WriteAll(ctx, buf[:n]); err != nil {
				producer.Close()
				return fmt.Errorf("write failed: %w", err)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			producer.Close()
			return fmt.Errorf("reading stdin: %w", readErr)
		}
	}

	producer.Close()
	log.Infow("stream complete")
	return nil
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
