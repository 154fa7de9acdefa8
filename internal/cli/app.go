package cli

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"poly-fli/internal/config"
	"poly-fli/internal/ethutil"
	"poly-fli/internal/fli"
	"poly-fli/internal/gas"
	"poly-fli/internal/gasoracle"
	"poly-fli/internal/journal"
	"poly-fli/internal/logx"
	"poly-fli/internal/metrics"
	"poly-fli/internal/operator"
	"poly-fli/internal/polygonutil"
	"poly-fli/internal/router"
	"poly-fli/internal/wallet"
)

const setupTimeout = 12 * time.Second

// Options select what a tool needs from Connect.
type Options struct {
	// Sign loads a signer (PRIVATE_KEY, keystore or prompt). Without it the
	// session is read-only.
	Sign bool
	// Address is the account read-only tools inspect. When blank it is
	// derived from PRIVATE_KEY if set.
	Address string
	Trade   *Trade
}

// App is one wired tool run.
type App struct {
	Env      config.Env
	Profile  *config.Profile
	Registry *polygonutil.Registry
	Client   *ethclient.Client
	Console  *operator.Console
	Session  *fli.Session
	Log      zerolog.Logger

	op      string
	flags   Common
	root    zerolog.Logger
	journal *journal.Writer
	metrics *metrics.Run
}

// Load reads env and profile and sets up the console, logger and run
// outputs. It does not touch the node, so argument errors surface before
// any key prompt.
func Load(ctx context.Context, c Common, op string) (*App, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	var profile *config.Profile
	if strings.TrimSpace(c.Profile) != "" {
		if profile, err = config.LoadProfile(c.Profile); err != nil {
			return nil, err
		}
	}

	log := logx.New(pick(c.LogLevel, env.LogLevel), os.Stderr)
	reg, err := profile.Registry()
	if err != nil {
		return nil, err
	}

	return &App{
		Env:      env,
		Profile:  profile,
		Registry: reg,
		Console:  operator.Stdio(operator.WithAssumeYes(c.Yes), operator.WithContext(ctx)),
		Log:      logx.Component(log, op),
		op:       op,
		flags:    c,
		root:     log,
		journal:  journal.New(pick(c.Journal, env.JournalPath), fmt.Sprintf("%s-%d", op, time.Now().UnixMilli())),
		metrics:  metrics.New(pick(c.Metrics, env.MetricsTextfile)),
	}, nil
}

// Connect dials the node, checks the chain id, attaches the account and
// builds the session with its gas pricing and router.
func (a *App) Connect(ctx context.Context, o Options) error {
	c, env, profile, reg, log := a.flags, a.Env, a.Profile, a.Registry, a.root

	if env.RPCURL == "" {
		return fmt.Errorf("POLYGON_URL or RPC_URL required (set POLYGON_URL in .env)")
	}
	if err := polygonutil.ValidateRPCURL(env.RPCURL); err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, env.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	// Finish closes the client from here on.
	a.Client = client
	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if chainID.Int64() != env.ChainID {
		return fmt.Errorf("rpc reports chain id %s, expected %d (set CHAIN_ID for forks)", chainID, env.ChainID)
	}

	s := &fli.Session{
		Backend:             client,
		Registry:            reg,
		Console:             a.Console,
		FlashLoanPremiumBps: o.Trade.premiumBps(profile),
		Journal:             a.journal,
		Metrics:             a.metrics,
		Log:                 a.Log,
	}
	if err := a.attachAccount(ctx, s, o); err != nil {
		return err
	}

	var gasCfg config.Gas
	if profile != nil {
		gasCfg = profile.Gas
	}
	resolver, err := newResolver(c, gasCfg, env, client, logx.Component(log, "gas"))
	if err != nil {
		return err
	}
	gasCtx, cancelGas := context.WithTimeout(ctx, setupTimeout)
	defer cancelGas()
	if s.Gas, err = resolver.Resolve(gasCtx); err != nil {
		return fmt.Errorf("gas price: %w", err)
	}
	s.GasScalingPct = c.GasScaling
	if s.GasScalingPct == 0 {
		s.GasScalingPct = gasCfg.ScalingPct
	}

	connectors, tiers, err := routerSettings(c, profile, env, reg)
	if err != nil {
		return err
	}
	routerOpts := []router.Option{
		router.WithConnectors(connectors),
		router.WithFeeTiers(tiers),
		router.WithLogger(logx.Component(log, "router")),
	}
	s.Router = router.New(router.NewOnChain(client, polygonutil.UniswapV3Factory, polygonutil.UniswapV3QuoterV2), routerOpts...)

	a.Session = s
	a.Log.Debug().
		Str("rpc", redactURL(env.RPCURL)).
		Int64("chain_id", env.ChainID).
		Str("from", s.From.Hex()).
		Str("gas", s.Gas.String()).
		Str("connectors", ethutil.JoinHex(connectors)).
		Msg("session ready")
	return nil
}

func (a *App) attachAccount(ctx context.Context, s *fli.Session, o Options) error {
	if o.Sign {
		signer, err := wallet.Load(wallet.Options{
			PrivateKey:       a.Env.PrivateKey,
			KeystorePath:     a.Env.KeystorePath,
			KeystorePassword: a.Env.KeystorePassword,
			Prompt:           a.Console,
		})
		if err != nil {
			return err
		}
		opts, err := signer.TransactOpts(ctx, big.NewInt(a.Env.ChainID))
		if err != nil {
			return err
		}
		s.Signer = opts
		s.From = signer.Address
		a.Log.Info().Str("signer", signer.String()).Msg("signer loaded")
		return nil
	}

	if strings.TrimSpace(o.Address) != "" {
		addr, err := ethutil.ParseAddress(o.Address)
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
		s.From = addr
		return nil
	}
	if a.Env.PrivateKey != "" {
		signer, err := wallet.FromHex(a.Env.PrivateKey, "PRIVATE_KEY")
		if err != nil {
			return err
		}
		s.From = signer.Address
	}
	return nil
}

func newResolver(c Common, p config.Gas, env config.Env, node gas.NodeSuggester, log zerolog.Logger) (gas.Resolver, error) {
	source, err := gas.ParseSource(pick(c.GasSource, p.Source, env.GasSource))
	if err != nil {
		return gas.Resolver{}, err
	}
	fixed, err := config.OptionalDecimal(pick(c.GasPrice, p.PriceGwei))
	if err != nil {
		return gas.Resolver{}, fmt.Errorf("gas price: %w", err)
	}
	speed, err := gasoracle.ParseSpeed(pick(c.GasSpeed, p.Speed))
	if err != nil {
		return gas.Resolver{}, err
	}

	r := gas.Resolver{Source: source, FixedGwei: fixed, Speed: speed, Node: node, Log: log}
	switch source {
	case gas.SourceGasStation:
		st, err := gasoracle.NewGasStation(env.GasStationURL)
		if err != nil {
			return gas.Resolver{}, err
		}
		r.Station = st
	case gas.SourcePolygonscan:
		ps, err := gasoracle.NewPolygonscan("", env.PolygonscanAPIKey)
		if err != nil {
			return gas.Resolver{}, err
		}
		r.Tracker = ps
	}
	return r, nil
}

// routerSettings picks connectors (flag, profile, ROUTER_CONNECTORS, then
// the defaults) and fee tiers (flag, profile, then the router's defaults).
func routerSettings(c Common, p *config.Profile, env config.Env, reg *polygonutil.Registry) ([]common.Address, []uint32, error) {
	resolve := func(s string) (common.Address, error) {
		t, err := reg.Resolve(s)
		if err != nil {
			return common.Address{}, err
		}
		return t.Address, nil
	}

	var connectors []common.Address
	var err error
	switch {
	case strings.TrimSpace(c.Connectors) != "":
		connectors, err = resolveTokens(strings.Split(c.Connectors, ","), resolve)
	case p != nil && len(p.Router.Connectors) > 0:
		connectors, err = resolveTokens(p.Router.Connectors, resolve)
	case len(env.RouterConnectors) > 0:
		connectors = env.RouterConnectors
	default:
		connectors = polygonutil.DefaultConnectors
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connectors: %w", err)
	}

	var tiers []uint32
	if strings.TrimSpace(c.FeeTiers) != "" {
		if tiers, err = parseFeeTiers(c.FeeTiers); err != nil {
			return nil, nil, err
		}
	} else if p != nil && len(p.Router.FeeTiers) > 0 {
		tiers = p.Router.FeeTiers
	}
	return connectors, tiers, nil
}

// Finish records the run outcome and releases the client and outputs.
func (a *App) Finish(err error) {
	if a == nil {
		return
	}
	label := fli.ResultLabel(err)
	if err != nil && a.Session == nil {
		// failed before a session existed to journal it
		a.recordFailure(err)
	}
	a.metrics.Finish(a.op, label, time.Now())
	if ferr := a.metrics.Flush(); ferr != nil {
		a.Log.Warn().Err(ferr).Msg("metrics flush failed")
	}
	if cerr := a.journal.Close(); cerr != nil {
		a.Log.Warn().Err(cerr).Msg("journal close failed")
	}
	if a.Client != nil {
		a.Client.Close()
	}
	if err != nil && !errors.Is(err, fli.ErrAborted) {
		a.Log.Error().Err(err).Str("result", label).Msg(a.op + " failed")
	}
}

func (a *App) recordFailure(err error) {
	kind := journal.KindFailed
	if errors.Is(err, fli.ErrAborted) {
		kind = journal.KindAborted
	}
	if jerr := a.journal.Record(journal.Event{Op: a.op, Event: kind, Err: err.Error()}); jerr != nil {
		a.Log.Warn().Err(jerr).Msg("journal write failed")
	}
}

// redactURL drops the path and query, where providers put API keys.
func redactURL(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		rest := raw[i+3:]
		if j := strings.IndexAny(rest, "/?"); j >= 0 {
			return raw[:i+3+j]
		}
	}
	return raw
}
