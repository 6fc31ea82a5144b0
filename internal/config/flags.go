package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Only flags the user actually set are
// applied.
type Flags struct {
	fs        *pflag.FlagSet
	addr      *string
	staticDir *string
	logLevel  *string
	driver    *string
	dbPath    *string
	dataDir   *string
	skipSeed  *bool
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		fs:        fs,
		addr:      fs.String("addr", "", "HTTP listen address"),
		staticDir: fs.String("static", "", "directory with the built frontend"),
		logLevel:  fs.String("log-level", "", "debug, info, warn or error"),
		driver:    fs.String("storage", "", "storage driver: sqlite, file, redis, postgres or memory"),
		dbPath:    fs.String("db", "", "path to the sqlite database file"),
		dataDir:   fs.String("data-dir", "", "directory for the file storage driver"),
		skipSeed:  fs.Bool("skip-seed", false, "do not install the default team on first start"),
	}
}

func (f *Flags) Apply(cfg *Config) {
	set := func(name string, dst *string, v *string) {
		if f.fs.Changed(name) {
			*dst = *v
		}
	}
	set("addr", &cfg.Addr, f.addr)
	set("static", &cfg.StaticDir, f.staticDir)
	set("log-level", &cfg.LogLevel, f.logLevel)
	set("storage", &cfg.Storage.Driver, f.driver)
	set("db", &cfg.Storage.Path, f.dbPath)
	set("data-dir", &cfg.Storage.Dir, f.dataDir)
	if f.fs.Changed("skip-seed") {
		cfg.SkipSeed = *f.skipSeed
	}
}
