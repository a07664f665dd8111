package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"next-nav-server/internal/directive"
	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/tree"
)

type treeOptions struct {
	asJSON   bool
	explain  bool
	logLevel string
}

func newTreeCmd() *cobra.Command {
	opts := &treeOptions{}

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the server/client tree of a directory",
		Long: `tree walks dir (default ".") the way the navigator does and prints it.
Directories holding a 'use client' module are marked [client].

With --json the output is exactly what the panel receives: the node array, or {}
when the walk fails. --explain lists the first statement of every tracked file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if err := logging.Init(logging.Config{Level: opts.logLevel, Format: "console", Output: "stderr"}); err != nil {
				return err
			}
			defer func() { _ = logging.Sync() }()
			return runTree(cmd.OutOrStdout(), dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the nodes as JSON")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "List the first statement of every tracked file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	return cmd
}

func runTree(out io.Writer, dir string, opts *treeOptions) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	fsAdapter := filesystem.NewDefaultFileSystemAdapter()
	nodes, buildErr := tree.NewBuilder(fsAdapter, directive.NewScanner(fsAdapter)).Build(abs)

	if opts.asJSON {
		data, err := json.MarshalIndent(tree.Result{Tree: nodes, Err: buildErr}, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
		return buildErr
	}
	if buildErr != nil {
		return buildErr
	}

	if err := tree.Render(out, nodes); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d directories, %d client\n", len(nodes), nodes.ClientCount())

	if opts.explain {
		return explain(out, fsAdapter, abs, nodes)
	}
	return nil
}

// explain prints, for every tracked file, whether it carries the directive
// and the statement the scanner stopped at.
func explain(out io.Writer, fsAdapter filesystem.FileSystemAdapter, root string, nodes tree.Tree) error {
	fmt.Fprintln(out)
	for _, n := range nodes {
		for _, name := range n.Contents {
			path := filepath.Join(n.Path, name)
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}

			rc, err := fsAdapter.Open(path)
			if err != nil {
				return err
			}
			stmt, found, err := directive.FirstStatement(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("scan %s: %w", path, err)
			}

			mark := "server"
			if directive.HasDirective(stmt) {
				mark = "client"
			}
			if !found {
				stmt = "(no statement)"
			}
			fmt.Fprintf(out, "%-6s  %s  %s\n", mark, rel, stmt)
		}
	}
	return nil
}
