package operations

import (
	"strings"

	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	configFlag    = "config"
	profileFlag   = "profile"
	portFlag      = "port"
	fromFlag      = "from"
	toFlag        = "to"
	wptKeyFlag    = "wptKey"
	dbBackendFlag = "dbBackend"
	dbURIFlag     = "dbUri"
	redisURLFlag  = "redisUrl"

	configFileEnv = "SPEEDTRACKER_CONFIG"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func configFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   joinFlagNames(configFlag, "c"),
			Usage:  "path to the speedtracker YAML configuration file",
			Value:  "speedtracker.yml",
			EnvVar: configFileEnv,
		},
		cli.StringFlag{
			Name:   wptKeyFlag,
			Usage:  "WebPageTest API key, overrides the configuration file",
			EnvVar: "SPEEDTRACKER_WPT_API_KEY",
		},
		cli.StringFlag{
			Name:   dbBackendFlag,
			Usage:  "result store to use: 'mongodb', 'redis' or 'memory'",
			EnvVar: "SPEEDTRACKER_DB_BACKEND",
		},
		cli.StringFlag{
			Name:   dbURIFlag,
			Usage:  "specify a mongodb connection string",
			EnvVar: "SPEEDTRACKER_MONGODB_URL",
		},
		cli.StringFlag{
			Name:   redisURLFlag,
			Usage:  "specify a redis connection url",
			EnvVar: "SPEEDTRACKER_REDIS_URL",
		})
}

func profileFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(profileFlag, "p"),
		Usage: "name of the profile",
		Value: "default",
	})
}

func timeRangeFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  fromFlag,
			Usage: "only include results completed at or after this unix timestamp",
		},
		cli.StringFlag{
			Name:  toFlag,
			Usage: "only include results completed at or before this unix timestamp",
		})
}

func serviceFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.IntFlag{
		Name:   portFlag,
		Usage:  "specify a port to run the service on, overrides the configuration file",
		EnvVar: "SPEEDTRACKER_SERVICE_PORT",
	})
}
