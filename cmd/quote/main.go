// Command quote plans an issue or redeem without a signer and prints the
// transaction it would send. Nothing is approved or submitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"poly-fli/internal/cli"
	"poly-fli/internal/dotenv"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var flags cli.Common
	var trade cli.Trade
	var opFlag string
	var addressFlag string
	flags.Register(flag.CommandLine)
	trade.RegisterQuote(flag.CommandLine)
	flag.StringVar(&opFlag, "op", "issue", "Operation to quote: issue or redeem")
	flag.StringVar(&addressFlag, "address", "", "Account whose balances and allowances are checked (default: PRIVATE_KEY's address)")
	flag.Parse()

	op := strings.ToLower(strings.TrimSpace(opFlag))
	if op != "issue" && op != "redeem" {
		log.Fatalf("[fatal] invalid -op %q (issue|redeem)", opFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Load(ctx, flags, "quote_"+op)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	err = run(ctx, app, op, addressFlag, &trade)
	app.Finish(err)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
}

func run(ctx context.Context, app *cli.App, op, address string, trade *cli.Trade) error {
	connect := func() error {
		return app.Connect(ctx, cli.Options{Address: address, Trade: trade})
	}
	switch op {
	case "issue":
		req, err := trade.IssueRequest(app.Profile)
		if err != nil {
			return err
		}
		if err := connect(); err != nil {
			return err
		}
		_, err = app.Session.QuoteIssue(ctx, req)
		return err
	case "redeem":
		req, err := trade.RedeemRequest(app.Profile)
		if err != nil {
			return err
		}
		if err := connect(); err != nil {
			return err
		}
		_, err = app.Session.QuoteRedeem(ctx, req)
		return err
	default:
		return fmt.Errorf("unknown op %q", op)
	}
}
