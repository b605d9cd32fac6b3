package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/credeval/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          address and port of the credeval gRPC server
//	-timeout duration  per-call deadline, e.g. 10s
//	-token string      access token
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-timeout", "-token"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "access token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
