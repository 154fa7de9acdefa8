// Package config gathers the tools' settings from the environment and from
// an optional YAML run profile.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poly-fli/internal/ethutil"
	"poly-fli/internal/polygonutil"
)

// Env is everything the tools read from the process environment.
type Env struct {
	RPCURL string

	PrivateKey       string
	KeystorePath     string
	KeystorePassword string

	PolygonscanAPIKey string
	GasStationURL     string
	GasSource         string

	ChainID int64

	// RouterConnectors is a hex address list (ROUTER_CONNECTORS).
	RouterConnectors []common.Address

	LogLevel        string
	JournalPath     string
	MetricsTextfile string
}

func LoadEnv() (Env, error) {
	e := Env{
		RPCURL:            strings.TrimSpace(polygonutil.FirstNonEmpty(os.Getenv("POLYGON_URL"), os.Getenv("RPC_URL"), os.Getenv("RPC_WS_URL"))),
		PrivateKey:        strings.TrimSpace(os.Getenv("PRIVATE_KEY")),
		KeystorePath:      strings.TrimSpace(os.Getenv("KEYSTORE_PATH")),
		KeystorePassword:  os.Getenv("KEYSTORE_PASSWORD"),
		PolygonscanAPIKey: strings.TrimSpace(os.Getenv("POLYGONSCAN_API_KEY")),
		GasStationURL:     strings.TrimSpace(os.Getenv("GAS_STATION_URL")),
		GasSource:         strings.TrimSpace(os.Getenv("GAS_SOURCE")),
		ChainID:           polygonutil.ChainID,
		LogLevel:          strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		JournalPath:       strings.TrimSpace(os.Getenv("JOURNAL_PATH")),
		MetricsTextfile:   strings.TrimSpace(os.Getenv("METRICS_TEXTFILE")),
	}
	connectors, err := ethutil.ParseAddressList(os.Getenv("ROUTER_CONNECTORS"))
	if err != nil {
		return Env{}, fmt.Errorf("ROUTER_CONNECTORS: %w", err)
	}
	e.RouterConnectors = connectors
	if raw := strings.TrimSpace(os.Getenv("CHAIN_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Env{}, fmt.Errorf("invalid CHAIN_ID %q", raw)
		}
		e.ChainID = id
	}
	return e, nil
}
