package config

import "github.com/spf13/pflag"

// RegisterFlags adds the flags Load understands. Flag names are koanf keys.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("database.driver", def.Database.Driver, "database driver (sqlite3 or postgres)")
	fs.String("database.dsn", def.Database.DSN, "database file path or connection string")
	fs.String("log.mode", def.Log.Mode, "log mode (dev or prod)")
	fs.String("library.dataset", def.Library.Dataset, "seed dataset id")
}
