// Package main provides the CLI entry point for ristsender, a RIST
// pre-shared-key endpoint that reads payloads from stdin and sends one
// encrypted UDP packet per line to a peer.
package main

import (
	"bufio"
	"context"
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

	"net/http"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "ristsender",
		Short:   "Encrypt and send RIST payloads over UDP",
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
		peerAddr     string
		metricsAddr  string
		passwordFlag string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send lines from stdin as encrypted RIST payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if peerAddr == "" && len(cfg.Peers) > 0 {
				peerAddr = cfg.Peers[0].Address
			}
			if peerAddr == "" {
				return fmt.Errorf("a peer address is required, via --peer or config.peers[0].address")
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

			sender, err := endpoint.NewSender(cfg.PSK.KeySize, cfg.PSK.Rotation, password, cfg.Profile.GREVersion)
			if err != nil {
				return fmt.Errorf("create sender: %w", err)
			}
			defer sender.Close()
			sender.SetRecorder(m)

			conn, err := net.Dial("udp", peerAddr)
			if err != nil {
				return fmt.Errorf("dial peer %s: %w", peerAddr, err)
			}
			defer conn.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return sendLoop(ctx, conn, sender, m, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./ristsender.yaml", "path to configuration file")
	cmd.Flags().StringVar(&peerAddr, "peer", "", "peer address, host:port (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, empty to disable")
	cmd.Flags().StringVar(&passwordFlag, "psk-password", "", "pre-shared key passphrase (overrides config and prompt)")

	return cmd
}

func sendLoop(ctx context.Context, conn net.Conn, sender *endpoint.Sender, m *metrics.Metrics, log *slog.Logger) error {
	m.RecordPeerCreated()
	defer m.RecordPeerDestroyed()

	scanner := bufio.NewScanner(os.Stdin)
	var totalBytes uint64

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		default:
		}

		line := scanner.Bytes()
		start := time.Now()
		wire, err := sender.EncryptPacket(line)
		if err != nil {
			log.Error("encrypt failed", logging.KeyError, err.Error())
			continue
		}
		if _, err := conn.Write(wire); err != nil {
			log.Error("send failed", logging.KeyError, err.Error())
			continue
		}

		m.RecordEncrypt(sender.KeyBits(), len(line), time.Since(start).Seconds())
		totalBytes += uint64(len(line))
		log.Info("sent packet",
			logging.KeyNonce, sender.Nonce(),
			logging.KeyCount, humanize.Bytes(totalBytes),
		)
	}
	return scanner.Err()
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
