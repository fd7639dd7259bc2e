package clicmd

import (
	"fmt"
	"os"

	"chronicle/internal/config"
	"chronicle/internal/imagestore"
	"chronicle/internal/persistence"

	"github.com/BurntSushi/toml"
)

func defaultConfigPath() (string, error) {
	return config.DefaultPath("chronicle")
}

// openStores loads config at path and opens the same persistence.Store and
// imagestore.Store chronicled would use. Callers must close the returned
// *persistence.Store when done.
func openStores(path string) (config.Config, *persistence.Store, *imagestore.Store, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("open database: %w", err)
	}
	images, err := imagestore.New(1024, cfg.Screenshot.SavePath)
	if err != nil {
		store.Close()
		return config.Config{}, nil, nil, fmt.Errorf("open image store: %w", err)
	}
	return cfg, store, images, nil
}

// saveConfig writes cfg back to path as TOML, overwriting whatever is
// there. Environment-variable interpolation is one-directional (applied on
// load, never reconstructed on save), so a round-tripped file has its
// ${VAR} references already resolved to literal values — acceptable here
// since this command is an explicit operator action, not the automatic
// first-run bootstrap.
func saveConfig(path string, cfg config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s for writing: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
