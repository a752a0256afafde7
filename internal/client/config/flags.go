package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authsvc/internal/flagx"
)

// parseFlags overlays -a, -i and -t onto cfg. Other arguments are
// filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")

	return fs.Parse(flagx.FilterArgs(args, flagx.DefinedFlags(fs)))
}
