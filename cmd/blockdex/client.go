package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/blockdex/internal/cli"
	"github.com/hyperjump/blockdex/internal/config"
)

// generateTimeout bounds "project generate", which embeds a whole tree on the server.
const (
	requestTimeout  = 30 * time.Second
	generateTimeout = 30 * time.Minute
)

type clientContext struct {
	client *cli.Client
	format cli.OutputFormat
	out    io.Writer
}

func newClientContext(cmd *cobra.Command, timeout time.Duration) (*clientContext, error) {
	format, err := cli.ParseOutputFormat(flagOutput)
	if err != nil {
		return nil, err
	}
	base := flagServer
	if base == "" {
		cfg, _, err := resolveConfig()
		if err != nil {
			return nil, err
		}
		base = serverURL(cfg.Server)
	}
	return &clientContext{
		client: cli.NewClient(base, timeout),
		format: format,
		out:    cmd.OutOrStdout(),
	}, nil
}

// serverURL turns the listen address into a dialable URL.
func serverURL(s config.ServerConfig) string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// readInput returns args[i] if present and not "-", otherwise all of stdin.
func readInput(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i && args[i] != "-" {
		return args[i], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects on the server",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := newClientContext(cmd, requestTimeout)
				if err != nil {
					return err
				}
				if err := cc.client.CreateProject(cmd.Context(), args[0], ""); err != nil {
					return err
				}
				return cli.WriteMessage(cc.out, fmt.Sprintf("Project %s created", args[0]), cc.format)
			},
		},
		&cobra.Command{
			Use:   "info <name>",
			Short: "Show a project's block count",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := newClientContext(cmd, requestTimeout)
				if err != nil {
					return err
				}
				info, err := cc.client.ProjectInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return cli.WriteProjectInfo(cc.out, info, cc.format)
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a project and all its blocks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := newClientContext(cmd, requestTimeout)
				if err != nil {
					return err
				}
				msg, err := cc.client.DeleteProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return cli.WriteMessage(cc.out, msg, cc.format)
			},
		},
		&cobra.Command{
			Use:   "generate <name> <path>",
			Short: "Parse a source tree and store its blocks under the project",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := newClientContext(cmd, generateTimeout)
				if err != nil {
					return err
				}
				path, err := filepath.Abs(args[1])
				if err != nil {
					return err
				}
				res, err := cc.client.Generate(cmd.Context(), args[0], path)
				if err != nil {
					return err
				}
				return cli.WriteMessage(cc.out, res.Message, cc.format)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List project names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cc, err := newClientContext(cmd, requestTimeout)
				if err != nil {
					return err
				}
				names, err := cc.client.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				return cli.WriteProjects(cc.out, names, cc.format)
			},
		},
	)
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <project> [code|-]",
		Short: "Find the stored blocks most similar to a code snippet",
		Long:  "Find the stored blocks most similar to a code snippet. The snippet is read from stdin when omitted or \"-\".",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := newClientContext(cmd, requestTimeout)
			if err != nil {
				return err
			}
			code, err := readInput(cmd, args, 1)
			if err != nil {
				return err
			}
			res, err := cc.client.Search(cmd.Context(), args[0], code)
			if err != nil {
				return err
			}
			return cli.WriteNearest(cc.out, res, cc.format)
		},
	}
}

func newBlocksCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "blocks <project>",
		Short: "List every function block of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := newClientContext(cmd, requestTimeout)
			if err != nil {
				return err
			}
			blocks, err := cc.client.Blocks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if short && cc.format == cli.OutputText {
				var sb strings.Builder
				for _, b := range blocks {
					sb.WriteString(cli.BlockSummary(b))
					sb.WriteByte('\n')
				}
				_, err := io.WriteString(cc.out, sb.String())
				return err
			}
			return cli.WriteBlocks(cc.out, blocks, cc.format)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "one line per block")
	return cmd
}

func newGrepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grep <project> [text|-]",
		Short: "Find function blocks whose content contains text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := newClientContext(cmd, requestTimeout)
			if err != nil {
				return err
			}
			needle, err := readInput(cmd, args, 1)
			if err != nil {
				return err
			}
			blocks, err := cc.client.SearchText(cmd.Context(), args[0], needle)
			if err != nil {
				return err
			}
			return cli.WriteBlocks(cc.out, blocks, cc.format)
		},
	}
}

func newFuncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "func <project> <name>",
		Short: "Find blocks whose function name contains name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := newClientContext(cmd, requestTimeout)
			if err != nil {
				return err
			}
			blocks, err := cc.client.SearchFunction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return cli.WriteBlocks(cc.out, blocks, cc.format)
		},
	}
}

