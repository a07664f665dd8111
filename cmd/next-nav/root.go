package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "next-nav",
		Short: "Navigate a Next.js app directory by server and client components",
		Long: `next-nav walks a Next.js app directory, marks every directory that holds a
'use client' module and serves the result to the navigator panel.

Examples:
  next-nav serve -d ./my-app                 # HTTP and WebSocket on :8080
  next-nav serve -d ./my-app --transport stdio
  next-nav tree ./my-app/app                 # print the tree
  next-nav tree ./my-app/app --json          # print the nodes the panel receives`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(newServeCmd(), newTreeCmd())
	return root
}
