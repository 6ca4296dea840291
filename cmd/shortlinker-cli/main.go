// Command shortlinker-cli is a thin urfave/cli wrapper over the IPC
// channel: every subcommand builds one internal/ipc.Client call against
// the running server's Unix socket and prints the result: JSON for
// commands that return data, a short text line for the others.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/shortlinker/shortlinker/internal/ipc"
	"github.com/shortlinker/shortlinker/internal/models"
)

func main() {
	app := &cli.App{
		Name:  "shortlinker-cli",
		Usage: "control a running shortlinker server over its IPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Value: "/tmp/shortlinker.sock", EnvVars: []string{"SHORTLINKER_IPC_SOCKET_PATH"}},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second},
		},
		Commands: []*cli.Command{
			statusCmd,
			reloadCmd,
			linkCmd,
			configCmd,
			shutdownCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func client(c *cli.Context) *ipc.Client {
	return ipc.NewClient(c.String("socket"), c.Duration("timeout"))
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "show server status",
	Action: func(c *cli.Context) error {
		status, err := client(c).Status(context.Background())
		if err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

var reloadCmd = &cli.Command{
	Name:      "reload",
	Usage:     "trigger a data/config/all reload",
	ArgsUsage: "[data|config|all]",
	Action: func(c *cli.Context) error {
		target := c.Args().First()
		if target == "" {
			target = "all"
		}
		if err := client(c).Reload(context.Background(), target); err != nil {
			return err
		}
		fmt.Println("reload triggered:", target)
		return nil
	},
}

var shutdownCmd = &cli.Command{
	Name:  "shutdown",
	Usage: "ask the server to shut down gracefully",
	Action: func(c *cli.Context) error {
		if err := client(c).Shutdown(context.Background()); err != nil {
			return err
		}
		fmt.Println("shutdown requested")
		return nil
	},
}

var linkCmd = &cli.Command{
	Name:  "link",
	Usage: "manage short links",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			ArgsUsage: "<code>",
			Action: func(c *cli.Context) error {
				code := c.Args().First()
				if code == "" {
					return cli.Exit("code is required", 1)
				}
				link, err := client(c).LinkGet(context.Background(), code)
				if err != nil {
					return err
				}
				printJSON(link)
				return nil
			},
		},
		{
			Name:      "rm",
			ArgsUsage: "<code>",
			Action: func(c *cli.Context) error {
				code := c.Args().First()
				if code == "" {
					return cli.Exit("code is required", 1)
				}
				if err := client(c).LinkRemove(context.Background(), code); err != nil {
					return err
				}
				fmt.Println("removed:", code)
				return nil
			},
		},
		{
			Name:      "set",
			ArgsUsage: "<code> <target>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "password"},
				&cli.StringFlag{Name: "expires-at", Usage: "RFC3339 timestamp"},
			},
			Action: func(c *cli.Context) error {
				code, target := c.Args().Get(0), c.Args().Get(1)
				if code == "" || target == "" {
					return cli.Exit("code and target are required", 1)
				}
				args := ipc.LinkSetArgs{Code: code, Target: target}
				if pw := c.String("password"); pw != "" {
					args.Password = &pw
				}
				if ea := c.String("expires-at"); ea != "" {
					t, err := time.Parse(time.RFC3339, ea)
					if err != nil {
						return cli.Exit("invalid --expires-at: "+err.Error(), 1)
					}
					args.ExpiresAt = &t
				}
				if err := client(c).LinkSet(context.Background(), args); err != nil {
					return err
				}
				fmt.Println("set:", code, "->", target)
				return nil
			},
		},
		{
			Name: "ls",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "q"},
				&cli.BoolFlag{Name: "active"},
				&cli.BoolFlag{Name: "expired"},
				&cli.IntFlag{Name: "page", Value: 1},
				&cli.IntFlag{Name: "page-size", Value: 50},
			},
			Action: func(c *cli.Context) error {
				links, err := client(c).LinkList(context.Background(), ipc.LinkListArgs{
					Query:       c.String("q"),
					OnlyActive:  c.Bool("active"),
					OnlyExpired: c.Bool("expired"),
					Page:        c.Int("page"),
					PageSize:    c.Int("page-size"),
				})
				if err != nil {
					return err
				}
				printJSON(links)
				return nil
			},
		},
		{
			Name:      "export",
			ArgsUsage: "<out-file.json>",
			Action: func(c *cli.Context) error {
				links, err := client(c).Export(context.Background())
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(links, "", "  ")
				if err != nil {
					return err
				}
				if out := c.Args().First(); out != "" {
					return os.WriteFile(out, data, 0o644)
				}
				fmt.Println(string(data))
				return nil
			},
		},
		{
			Name:      "import",
			ArgsUsage: "<in-file.json>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "mode", Value: "skip", Usage: "skip|overwrite"},
			},
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					return cli.Exit("input file is required", 1)
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				var links []models.ShortLink
				if err := json.Unmarshal(data, &links); err != nil {
					return err
				}
				count, err := client(c).Import(context.Background(), links, c.String("mode"))
				if err != nil {
					return err
				}
				fmt.Printf("imported %d links\n", count)
				return nil
			},
		},
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "manage hot-reloadable runtime configuration",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			ArgsUsage: "<key>",
			Action: func(c *cli.Context) error {
				entry, err := client(c).ConfigGet(context.Background(), c.Args().First())
				if err != nil {
					return err
				}
				printJSON(entry)
				return nil
			},
		},
		{
			Name: "ls",
			Action: func(c *cli.Context) error {
				entries, err := client(c).ConfigList(context.Background())
				if err != nil {
					return err
				}
				printJSON(entries)
				return nil
			},
		},
		{
			Name:      "set",
			ArgsUsage: "<key> <value>",
			Action: func(c *cli.Context) error {
				key, value := c.Args().Get(0), c.Args().Get(1)
				if key == "" {
					return cli.Exit("key is required", 1)
				}
				if err := client(c).ConfigSet(context.Background(), key, value, actor()); err != nil {
					return err
				}
				fmt.Println("set:", key)
				return nil
			},
		},
		{
			Name:      "reset",
			ArgsUsage: "<key>",
			Action: func(c *cli.Context) error {
				key := c.Args().First()
				if key == "" {
					return cli.Exit("key is required", 1)
				}
				if err := client(c).ConfigReset(context.Background(), key, actor()); err != nil {
					return err
				}
				fmt.Println("reset:", key)
				return nil
			},
		},
	},
}

func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}
