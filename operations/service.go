package operations

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/rest"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Service returns the ./speedtracker service sub-command object, which is
// responsible for starting the REST service.
func Service() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "run the speedtracker api service",
		Flags: serviceFlags(configFlags()...),
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			conf, err := loadConfiguration(c)
			if err != nil {
				return errors.WithStack(err)
			}
			if c.IsSet(portFlag) {
				conf.Service.Port = c.Int(portFlag)
			}

			env, err := speedtracker.NewEnvironment(conf)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			service := &rest.Service{
				Port:           conf.Service.Port,
				Prefix:         conf.Service.Prefix,
				AllowedOrigins: conf.Service.AllowedOrigins,
				Environment:    env,
			}

			if err = service.Validate(); err != nil {
				return errors.Wrap(err, "problem validating service")
			}

			grip.Noticef("starting speedtracker service on :%d", service.Port)
			if err = service.Start(ctx); err != nil {
				return errors.Wrap(err, "problem running service")
			}
			grip.Info("completed service, terminating.")

			return nil
		},
	}
}
