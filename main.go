package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/wavecast/broker/internal/broker"
)

const defaultPort = 6789

func main() {
	cmd := &cli.Command{
		Name:      "wavecast-broker",
		Usage:     "WebSocket-framed MQTT pub/sub broker",
		Version:   "0.0.1-prerelease",
		ArgsUsage: "[port]",
		Action:    run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	port := defaultPort
	if arg := cmd.Args().First(); arg != "" {
		p, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", arg, err)
		}
		port = p
	}

	printBanner(port)

	b := broker.New()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- b.Start("localhost", port)
	}()

	select {
	case <-ctx.Done():
		log.Printf("wavecast-broker: shutting down")
		return b.Stop()
	case err := <-serveErr:
		return err
	}
}

func printBanner(port int) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("\033[1;36mwavecast-broker\033[0m listening on ws://localhost:%d\n", port)
		return
	}
	fmt.Printf("wavecast-broker listening on ws://localhost:%d\n", port)
}
