package operations

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/evergreen-ci/speedtracker"
	"github.com/evergreen-ci/speedtracker/controller"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// loadConfiguration reads the configuration file named by the command's
// flags and applies the flag overrides. The result is not validated.
func loadConfiguration(c *cli.Context) (*speedtracker.Configuration, error) {
	conf, err := speedtracker.LoadConfiguration(c.String(configFlag))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if key := c.String(wptKeyFlag); key != "" {
		conf.WPTAPIKey = key
	}
	if backend := c.String(dbBackendFlag); backend != "" {
		conf.Database.Backend = backend
	}
	if uri := c.String(dbURIFlag); uri != "" {
		conf.Database.MongoDBURI = uri
	}
	if uri := c.String(redisURLFlag); uri != "" {
		conf.Database.RedisURL = uri
	}

	return conf, nil
}

func setupController(c *cli.Context) (speedtracker.Environment, *controller.Controller, error) {
	conf, err := loadConfiguration(c)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	env, err := speedtracker.NewEnvironment(conf)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	ctrl, err := controller.New(env.GetConf(), env.GetRunner(), env.GetDatabase())
	if err != nil {
		return nil, nil, errors.Wrap(err, "problem building controller")
	}

	return env, ctrl, nil
}

// writeResponse prints the body of the response as indented JSON. Failed
// responses are also returned as an error.
func writeResponse(w io.Writer, resp controller.Response) error {
	out, err := json.MarshalIndent(resp.Body, "", "   ")
	if err != nil {
		return errors.Wrap(err, "problem rendering response")
	}

	if _, err = fmt.Fprintln(w, string(out)); err != nil {
		return errors.WithStack(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if body, ok := resp.Body.(controller.ErrorBody); ok {
			return errors.Errorf("operation failed [%d]: %s", resp.StatusCode, body.Error)
		}
		return errors.Errorf("operation failed [%d]", resp.StatusCode)
	}

	return nil
}
