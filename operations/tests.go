package operations

import (
	"context"
	"fmt"
	"os"

	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/controller"
	"github.com/evergreen-ci/speedtracker/model"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// RunTest returns the ./speedtracker run-test sub-command, which starts a
// test of one profile.
func RunTest() cli.Command {
	return cli.Command{
		Name:  "run-test",
		Usage: "start a WebPageTest run for a profile",
		Flags: mergeFlags(configFlags(), profileFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, ctrl, err := setupController(c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			return writeResponse(os.Stdout, ctrl.RunTest(ctx, c.String(profileFlag)))
		},
	}
}

// Results returns the ./speedtracker results sub-command, which prints the
// stored results of one profile.
func Results() cli.Command {
	return cli.Command{
		Name:  "results",
		Usage: "print stored results for a profile",
		Flags: mergeFlags(configFlags(), profileFlags(), timeRangeFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, ctrl, err := setupController(c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			return writeResponse(os.Stdout, ctrl.GetResults(ctx, controller.ResultsOptions{
				Profile: c.String(profileFlag),
				From:    c.String(fromFlag),
				To:      c.String(toFlag),
			}))
		},
	}
}

// Profiles returns the ./speedtracker profiles sub-command, which lists the
// configured profiles.
func Profiles() cli.Command {
	return cli.Command{
		Name:  "profiles",
		Usage: "list the configured profiles",
		Flags: configFlags(),
		Action: func(c *cli.Context) error {
			conf, err := loadConfiguration(c)
			if err != nil {
				return errors.WithStack(err)
			}

			registry := conf.Registry()
			for _, name := range registry.Names() {
				profile, _ := registry.Get(name)
				fmt.Printf("%s\t%s\n", name, profile.Parameters.URL())
			}
			if _, ok := registry.Get(model.DefaultProfileName); !ok && conf.DefaultProfileURL != "" {
				fmt.Printf("%s\t%s\n", model.DefaultProfileName, conf.DefaultProfileURL)
			}

			return nil
		},
	}
}

func closeEnvironment(env speedtracker.Environment) {
	grip.Warning(message.WrapError(env.Close(), message.Fields{
		"message": "problem closing environment",
	}))
}
