// Command redeem sells an exact amount of a leveraged FLI set token for an
// ERC-20 output token through ExchangeIssuanceLeveraged.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"poly-fli/internal/cli"
	"poly-fli/internal/dotenv"
	"poly-fli/internal/fli"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var flags cli.Common
	var trade cli.Trade
	flags.Register(flag.CommandLine)
	trade.RegisterRedeem(flag.CommandLine)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Load(ctx, flags, "redeem")
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	err = run(ctx, app, &trade)
	app.Finish(err)
	if errors.Is(err, fli.ErrAborted) {
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
}

func run(ctx context.Context, app *cli.App, trade *cli.Trade) error {
	req, err := trade.RedeemRequest(app.Profile)
	if err != nil {
		return err
	}
	if err := app.Connect(ctx, cli.Options{Sign: true, Trade: trade}); err != nil {
		return err
	}
	_, err = app.Session.Redeem(ctx, req)
	return err
}
