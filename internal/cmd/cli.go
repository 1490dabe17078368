// Package cmd defines the splithid command line surface. Commands are wired
// up by kong; each command struct's Run method receives the configured
// logger via kong's binding mechanism.
package cmd

// LogConfig controls the logger built at startup.
type LogConfig struct {
	Level string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"SPLITHID_LOG_LEVEL"`
	File  string `help:"Log file path; empty logs to the console" env:"SPLITHID_LOG_FILE"`
}

// CLI is the root command structure parsed by kong.
type CLI struct {
	Log    LogConfig `embed:"" prefix:"log."`
	Config string    `help:"Path to a config file (json/yaml/toml)" env:"SPLITHID_CONFIG"`

	Serve     Serve          `cmd:"" help:"Run the report splitter daemon"`
	Mapping   MappingCommand `cmd:"" help:"Inspect and validate classifier mapping files"`
	Feed      Feed           `cmd:"" help:"Inject key events into a running daemon from the terminal"`
	ConfigCmd ConfigCommand  `cmd:"" name:"config" help:"Configuration helpers"`
}
