package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/quillchat/quill/client"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/sessions"
)

func main() {
	// .env is optional; flags and real env still win
	godotenv.Load()

	app := &cli.Command{
		Name:   "quill",
		Usage:  "Chat with an assistant backend from the terminal",
		Flags:  defineFlags(),
		Action: runCommand,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defineFlags() []cli.Flag {
	return []cli.Flag{
		// Connection
		&cli.StringFlag{
			Name:  "server",
			Usage: "Backend base URL",
			Value: defaultServer,
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Bearer token for the backend",
			Value: defaultToken,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Time to wait for the response headers",
			Value: defaultTimeout,
		},

		// Input
		&cli.StringFlag{
			Name:    "prompt",
			Aliases: []string{"p"},
			Usage:   "Prompt text (reads from stdin if not provided)",
		},

		// Context management
		&cli.StringFlag{
			Name:    "context",
			Aliases: []string{"c"},
			Usage:   "Named conversation context (uses QUILL_CONTEXT env var if not set)",
			Value:   defaultContext,
		},
		&cli.BoolFlag{
			Name:    "last",
			Aliases: []string{"L"},
			Usage:   "Use the most recently used context",
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Clear the context's history before sending",
		},
		&cli.BoolFlag{
			Name:  "list",
			Usage: "List all contexts",
		},
		&cli.StringFlag{
			Name:  "delete",
			Usage: "Delete the named context",
		},
		&cli.BoolFlag{
			Name:  "show",
			Usage: "Render the context's stored conversation and exit",
		},

		// Output
		&cli.BoolFlag{
			Name:  "plain",
			Usage: "Disable styling and status line",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the usage footer",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging",
		},
	}
}

func runCommand(ctx context.Context, cmd *cli.Command) error {
	config := parseConfig(cmd)
	log.Init(config.Debug)
	initColors()

	fileCfg, err := client.LoadConfig("")
	if err != nil {
		return err
	}
	applyFileConfig(config, fileCfg)

	store, err := sessions.NewFileSessionStore("", nil)
	if err != nil {
		return fmt.Errorf("failed to create context store: %w", err)
	}

	// Context management operations exit before any request is made.
	if config.ListContexts {
		return listContexts(store)
	}
	if config.DeleteContext != "" {
		store.Delete(config.DeleteContext)
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "Deleted context '%s'\n", config.DeleteContext)
		}
		return nil
	}

	if config.UseLastContext {
		config.ContextName = store.GetLast()
		if config.ContextName == "" {
			return fmt.Errorf("no last context found")
		}
	}

	if config.ShowContext {
		if config.ContextName == "" {
			return fmt.Errorf("--show requires a context (use -c or --last)")
		}
		return showContext(store, config)
	}

	return runConversation(ctx, config, store)
}

// applyFileConfig fills unset connection settings from the yaml config
func applyFileConfig(config *Config, fileCfg *client.Config) {
	if config.Server == defaultServer && fileCfg.ServerURL != "" {
		config.Server = fileCfg.ServerURL
	}
	if config.Token == "" {
		config.Token = fileCfg.Token
	}
	if config.ContextName == "" {
		config.ContextName = fileCfg.DefaultContext
	}
	if config.Timeout == defaultTimeout && fileCfg.Timeout != 0 {
		config.Timeout = fileCfg.Timeout
	}
}

func listContexts(store sessions.SessionStore) error {
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		if fs, ok := store.(*sessions.FileSessionStore); ok {
			fmt.Fprintf(os.Stderr, "No contexts in %s\n", fs.GetBaseDir())
		} else {
			fmt.Fprintln(os.Stderr, "No contexts")
		}
		return nil
	}

	meta := store.GetAllMetadata()
	for _, name := range names {
		line := name
		if m := meta[name]; m != nil && m.Description != "" {
			line = fmt.Sprintf("%s  %s", name, dimStyle.Styled(m.Description))
		}
		fmt.Println(line)
	}
	return nil
}
