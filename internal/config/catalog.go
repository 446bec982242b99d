package config

import (
	"jdroaster/internal/catalog"
	"jdroaster/internal/errors"
)

// LoadCatalog resolves the active rule catalog from the analyzer section.
// override, when non-empty, names a catalog file that wins over the
// configured source. secrets is only consulted for the vault source.
func LoadCatalog(cfg *Config, override string, secrets catalog.SecretReader, logger *errors.Logger) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)

	switch {
	case override != "":
		cat, err = catalog.Load(override)
	case cfg.Analyzer.CatalogSource == CatalogSourceFile:
		cat, err = catalog.Load(cfg.Analyzer.CatalogPath)
	case cfg.Analyzer.CatalogSource == CatalogSourceVault:
		cat, err = loadVaultCatalog(cfg, secrets)
	default:
		cat, err = catalog.Default()
	}
	if err != nil {
		logger.LogError(err, "Failed to load rule catalog", "source", cfg.Analyzer.CatalogSource)
		return nil, err
	}

	logger.Info("Rule catalog loaded",
		"source", cat.Source(),
		"version", cat.Version(),
		"rules", cat.Len())
	return cat, nil
}

func loadVaultCatalog(cfg *Config, secrets catalog.SecretReader) (*catalog.Catalog, error) {
	if secrets == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault catalog source requires an initialized vault client", nil)
	}
	format, err := catalog.ParseFormat(cfg.Analyzer.CatalogFormat)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidFormat, "invalid analyzer.catalogFormat", err)
	}
	return catalog.LoadFromSecret(secrets, cfg.Vault.Secrets.Catalog, cfg.Vault.Secrets.CatalogKey, format)
}
