// Command balance prints an account's MATIC balance and, per token, its
// balance and allowance to ExchangeIssuanceLeveraged.
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

	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/cli"
	"poly-fli/internal/dotenv"
	"poly-fli/internal/ethutil"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var flags cli.Common
	var addrFlag string
	var tokensFlag string
	flags.Register(flag.CommandLine)
	flag.StringVar(&addrFlag, "address", "", "Wallet address to check (default: signer from PRIVATE_KEY)")
	flag.StringVar(&tokensFlag, "tokens", "", "Comma-separated token symbols or addresses (default: every registry token)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Load(ctx, flags, "balance")
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	err = run(ctx, app, addrFlag, tokensFlag)
	app.Finish(err)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
}

func run(ctx context.Context, app *cli.App, address, tokensFlag string) error {
	tokens, err := selectTokens(app, tokensFlag)
	if err != nil {
		return err
	}
	if err := app.Connect(ctx, cli.Options{Address: address}); err != nil {
		return err
	}
	s := app.Session
	if s.From == (common.Address{}) {
		return fmt.Errorf("wallet required: set PRIVATE_KEY or pass --address")
	}

	native, holdings, err := s.Holdings(ctx, tokens)
	if err != nil {
		return err
	}
	app.Console.PrintFields("Account", map[string]any{
		"owner":   s.From.Hex(),
		"spender": s.Issuance.Hex(),
		"MATIC":   ethutil.FormatEther(native),
	})
	for _, h := range holdings {
		app.Console.PrintFields(h.Token.Symbol, h.Fields())
	}
	return nil
}

func selectTokens(app *cli.App, raw string) ([]common.Address, error) {
	var out []common.Address
	if strings.TrimSpace(raw) == "" {
		for _, t := range app.Registry.Tokens() {
			out = append(out, t.Address)
		}
		return out, nil
	}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		t, err := app.Registry.Resolve(item)
		if err != nil {
			return nil, err
		}
		if !ethutil.ContainsAddress(out, t.Address) {
			out = append(out, t.Address)
		}
	}
	return out, nil
}
