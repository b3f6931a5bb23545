package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides; only flags set explicitly win.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string
	port       string
	storage    string
	dbURL      string
	logLevel   string
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to a YAML config file")
	fs.StringVarP(&f.port, "port", "p", "", "HTTP listen port")
	fs.StringVar(&f.storage, "storage", "", "storage backend: postgres or memory")
	fs.StringVar(&f.dbURL, "database-url", "", "Postgres connection string")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return f
}

func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("port") {
		cfg.Port = f.port
	}
	if f.fs.Changed("storage") {
		cfg.Storage = f.storage
	}
	if f.fs.Changed("database-url") {
		cfg.DatabaseURL = f.dbURL
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
}
