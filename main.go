package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/homedash/cmd"
)

func main() {
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "INFO",
		},
		&cli.StringFlag{
			Name:    "listen-addr",
			EnvVars: []string{"HTTP_LISTEN_ADDR"},
			Value:   "0.0.0.0:8000",
		},
		&cli.StringFlag{
			Name:    "dashboard-id",
			EnvVars: []string{"DASHBOARD_ID"},
			Usage:   "dashboard to show, the account default when empty",
		},
	}

	app := &cli.App{
		Name:   "homedash",
		Usage:  "headless controller for the home dashboard",
		Action: cmd.ServeCommand,
		Flags:  serveFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "load the dashboard and serve the controller API",
				Action: cmd.ServeCommand,
				Flags:  serveFlags,
			},
			{
				Name:   "migrate",
				Usage:  "apply preference and state history migrations",
				Action: cmd.MigrateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "database-url",
						EnvVars:  []string{"DATABASE_URL"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "migrations-folder",
						EnvVars: []string{"MIGRATIONS_FOLDER"},
						Usage:   "read migrations from this folder instead of the embedded set",
					},
				},
			},
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash of an edit mode password",
				ArgsUsage: "<password>",
				Action:    cmd.HashPasswordCommand,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
