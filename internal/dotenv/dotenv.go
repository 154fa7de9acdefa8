package dotenv

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LocalFile is applied after .env and wins over it, so per-machine secrets
// can live outside the shared file.
const LocalFile = ".env.local"

// Load reads .env (values already present in the process environment win)
// and then overlays .env.local. Missing files are not an error.
func Load() error {
	return LoadFiles(".env", LocalFile)
}

func LoadFiles(base, overlay string) error {
	if err := godotenv.Load(base); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", base, err)
	}
	if overlay == "" {
		return nil
	}
	if err := godotenv.Overload(overlay); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", overlay, err)
	}
	return nil
}
