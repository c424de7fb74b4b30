package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deppfellow/msys2-relay/internal/lib/utils"
	"github.com/deppfellow/msys2-relay/internal/msys2"
	"github.com/deppfellow/msys2-relay/internal/service"
)

// newResolveCmd validates an address offline and prints the upstream URL
// the relay would fetch. Nothing is sent over the network.
func newResolveCmd() *cobra.Command {
	var (
		baseURL string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:     "resolve <environment> <architecture> <package>",
		Short:   "Validate a package address and print its upstream URL",
		Example: "  msys2-relay resolve mingw ucrt64 mingw-w64-ucrt-x86_64-gcc-13.2.0-2-any.pkg.tar.zst",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No fetcher: resolving never goes to the network.
			svc := service.NewPackageServiceWithFetcher(baseURL, nil)

			resolved, err := svc.Resolve(msys2.PackageFile{
				Environment:  args[0],
				Architecture: args[1],
				Package:      args[2],
			})
			if err != nil {
				return err
			}

			if asJSON {
				return utils.WriteJSON(cmd.OutOrStdout(), resolved)
			}

			fmt.Fprintln(cmd.OutOrStdout(), resolved.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", msys2.DefaultBaseURL, "upstream repository base URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resolved address as JSON")

	return cmd
}
