// Command peergroup is a small demonstration front-end over pkg/peergroup:
// it assembles a Group from flags, connects, and drops into an interactive
// console for sending wire commands and inspecting pool state, mirroring
// the flag/REPL split of neo-go's own cli/vm console.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/represtati3/bitcoin-net/pkg/peergroup"
	"github.com/represtati3/bitcoin-net/pkg/wsexchange"
)

var (
	numPeersFlag = cli.IntFlag{Name: "numpeers", Value: 8, Usage: "target pool size"}
	timeoutFlag  = cli.IntFlag{Name: "connecttimeout", Value: 8000, Usage: "connect timeout, milliseconds"}
	dnsSeedFlag  = cli.StringSliceFlag{Name: "dnsseed", Usage: "DNS seed host, repeatable"}
	staticFlag   = cli.StringSliceFlag{Name: "staticpeer", Usage: "static peer host:port, repeatable"}
	portFlag     = cli.IntFlag{Name: "port", Value: 8333, Usage: "default peer port"}
	bridgeFlag   = cli.BoolFlag{Name: "bridge", Usage: "run as a bridge: accept inbound, splice to a fresh outbound peer"}
	acceptFlag   = cli.IntFlag{Name: "accept", Value: 0, Usage: "if set, accept inbound on this port"}
)

func main() {
	app := cli.NewApp()
	app.Name = "peergroup"
	app.Usage = "Bitcoin-style peer pool coordinator"
	app.Flags = []cli.Flag{numPeersFlag, timeoutFlag, dnsSeedFlag, staticFlag, portFlag, bridgeFlag, acceptFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	params := peergroup.Params{
		DNSSeeds:    c.StringSlice("dnsseed"),
		StaticPeers: c.StringSlice("staticpeer"),
		DefaultPort: c.Int("port"),
	}
	exchange := wsexchange.New(log)
	timeout := time.Duration(c.Int("connecttimeout")) * time.Millisecond

	if c.Bool("bridge") {
		return runBridge(c, params, exchange, log, timeout)
	}
	return runGroup(c, params, exchange, log, timeout)
}

func runGroup(c *cli.Context, params peergroup.Params, exchange *wsexchange.Exchange, log *zap.Logger, timeout time.Duration) error {
	opts := peergroup.Options{
		NumPeers:       c.Int("numpeers"),
		ConnectTimeout: timeout,
		Factory:        loopbackFactory,
		Exchange:       exchange,
		ConnectWeb:     true,
	}
	g, err := peergroup.New(params, opts, log)
	if err != nil {
		return err
	}
	if err := g.Connect(); err != nil {
		return err
	}
	if port := c.Int("accept"); port > 0 {
		if err := g.Accept(context.Background(), port, nil); err != nil {
			log.Warn("accept failed", zap.Error(err))
		}
	}

	repl, err := newConsole()
	if err != nil {
		return err
	}
	defer repl.Close()

	for {
		fields, err := repl.readLine()
		if err != nil {
			break
		}
		handleGroupLine(g, repl, fields)
	}

	g.Close(nil)
	return nil
}

func runBridge(c *cli.Context, params peergroup.Params, exchange *wsexchange.Exchange, log *zap.Logger, timeout time.Duration) error {
	opts := peergroup.Options{
		ConnectTimeout: timeout,
		Exchange:       exchange,
	}
	b, err := peergroup.NewBridge(params, opts, log)
	if err != nil {
		return err
	}
	port := c.Int("accept")
	if port == 0 {
		port = c.Int("port")
	}
	if err := b.Accept(context.Background(), port, nil); err != nil {
		return err
	}

	events, cancel := b.Subscribe(peergroup.TopicBridge)
	defer cancel()
	for range events {
		log.Info("bridge pair established")
	}
	return nil
}

func handleGroupLine(g *peergroup.Group, repl *console, fields []string) {
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "peers":
		fmt.Fprintf(repl.out, "%d peers, phase=%s\n", g.PeerCount(), g.Phase())
	case "send":
		if len(fields) < 2 {
			fmt.Fprintln(repl.out, "usage: send <command> [payload]")
			return
		}
		payload := []byte(strings.Join(fields[2:], " "))
		if err := g.Send(fields[1], payload, true); err != nil {
			fmt.Fprintln(repl.out, err)
		}
	case "close":
		g.Close(func() { fmt.Fprintln(repl.out, "closed") })
	default:
		fmt.Fprintf(repl.out, "unknown command %q\n", fields[0])
	}
}
