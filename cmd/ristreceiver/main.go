// Package main provides the CLI entry point for ristreceiver, a RIST
// pre-shared-key endpoint that listens on UDP, decrypts incoming packets,
// and writes each recovered payload to stdout as a line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ristpsk/corepsk/internal/config"
	"github.com/ristpsk/corepsk/internal/endpoint"
	"github.com/ristpsk/corepsk/internal/identity"
	"github.com/ristpsk/corepsk/internal/logging"
	"github.com/ristpsk/corepsk/internal/metrics"
	"github.com/ristpsk/corepsk/internal/protocol"

	"net/http"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "ristreceiver",
		Short:   "Receive and decrypt RIST payloads over UDP",
		Version: Version,
	}
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		configPath   string
		listenAddr   string
		metricsAddr  string
		passwordFlag string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for encrypted RIST payloads and print them to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listenAddr == "" && len(cfg.Listeners) > 0 {
				listenAddr = cfg.Listeners[0].Address
			}
			if listenAddr == "" {
				return fmt.Errorf("a listen address is required, via --listen or config.listeners[0].address")
			}
			if passwordFlag != "" {
				cfg.PSK.Password = passwordFlag
			}

			log := logging.NewLogger(cfg.Endpoint.LogLevel, cfg.Endpoint.LogFormat)

			rec, created, err := identity.LoadOrCreate(cfg.Endpoint.DataDir)
			if err != nil {
				return fmt.Errorf("load endpoint identity: %w", err)
			}
			log.Info("endpoint ready", logging.KeyPeerID, rec.ID.ShortString(), "new_identity", created)

			password, err := resolvePassword(cfg)
			if err != nil {
				return err
			}

			m := metrics.Default()
			if metricsAddr != "" {
				serveMetrics(metricsAddr, log)
			}

			receiver, err := endpoint.NewReceiver(cfg.PSK.KeySize, password)
			if err != nil {
				return fmt.Errorf("create receiver: %w", err)
			}
			defer receiver.Close()
			receiver.SetRecorder(m)

			packetConn, err := net.ListenPacket("udp", listenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listenAddr, err)
			}
			defer packetConn.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			log.Info("listening", logging.KeyAddress, listenAddr)
			return receiveLoop(ctx, packetConn, receiver, m, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./ristreceiver.yaml", "path to configuration file")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on, host:port (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, empty to disable")
	cmd.Flags().StringVar(&passwordFlag, "psk-password", "", "pre-shared key passphrase (overrides config and prompt)")

	return cmd
}

func receiveLoop(ctx context.Context, conn net.PacketConn, receiver *endpoint.Receiver, m *metrics.Metrics, log *slog.Logger) error {
	m.RecordPeerCreated()
	defer m.RecordPeerDestroyed()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65536)
	var totalBytes uint64

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("shutting down")
				return nil
			default:
				return fmt.Errorf("read packet: %w", err)
			}
		}

		start := time.Now()
		plaintext, ok, err := receiver.DecryptPacket(buf[:n])
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidHeader) || errors.Is(err, protocol.ErrPayloadTooLarge) {
				log.Warn("dropping malformed packet", logging.KeyRemoteAddr, addr.String(), logging.KeyError, err.Error())
				m.RecordBadDecryption()
				continue
			}
			log.Error("decrypt failed", logging.KeyRemoteAddr, addr.String(), logging.KeyError, err.Error())
			continue
		}
		if !ok {
			continue
		}

		m.RecordDecrypt(receiver.KeyBits(), len(plaintext), time.Since(start).Seconds())
		totalBytes += uint64(len(plaintext))

		os.Stdout.Write(plaintext)
		os.Stdout.Write([]byte("\n"))

		log.Info("received packet",
			logging.KeyRemoteAddr, addr.String(),
			logging.KeyNonce, receiver.Nonce(),
			logging.KeyCount, humanize.Bytes(totalBytes),
		)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	return config.Load(path)
}

func resolvePassword(cfg *config.Config) ([]byte, error) {
	pw, err := cfg.PSK.GetPassword()
	if err != nil {
		return nil, err
	}
	if pw != nil {
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("psk.password or psk.password_file must be configured when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "PSK passphrase: ")
	pw, err = term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pw, nil
}

func serveMetrics(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info("serving metrics", logging.KeyAddress, addr)
		_ = http.ListenAndServe(addr, mux)
	}()
}
