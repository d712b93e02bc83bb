package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Build.DType == "" {
		cfg.Build.DType = "uint16"
	}
	if cfg.Build.ChunkSize == 0 {
		cfg.Build.ChunkSize = 64
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = "local"
	}
	if cfg.Store.Kind == "local" && cfg.Store.Root == "" {
		cfg.Store.Root = "./corpora"
	}
	if cfg.Transfer.Compression == "" {
		cfg.Transfer.Compression = "zstd"
	}
	if cfg.Transfer.MaxConcurrentTransfers == 0 {
		cfg.Transfer.MaxConcurrentTransfers = 4
	}
	if cfg.Transfer.MemoryLimitBytes == 0 {
		cfg.Transfer.MemoryLimitBytes = 64 << 20
	}
}
