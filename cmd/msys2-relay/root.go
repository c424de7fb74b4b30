package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "msys2-relay",
		Short: "Validating pass-through relay for the MSYS2 package repository",
		Long: `msys2-relay serves /msys2/{environment}/{architecture}/{package} by checking
the address against the MSYS2 repository layout and fetching the file from
the upstream repository on every request.

Configuration is read from MSYS2RELAY_* environment variables (and a .env
file when present).`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newVersionCmd(version),
	)

	return root
}
