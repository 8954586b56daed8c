package cmd

import (
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"bcfreq/internal/image"
)

func newSymbolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols [file]",
		Short: "List public symbols",
		Long:  "List the public symbol table of an image, sorted by code offset.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := openImage(args[0], a.cfg)
			if err != nil {
				return err
			}
			defer img.Close()

			syms, err := sortedSymbols(img)
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetBool("raw")
			for _, sym := range syms {
				name := sym.Name
				if !raw {
					name = displayName(name)
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "0x%08x  %s\n", sym.Offset, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "Print names without demangling")
	return cmd
}

// sortedSymbols returns the public symbols ordered by code offset, then name.
func sortedSymbols(img *image.Image) ([]image.Symbol, error) {
	syms, err := img.Symbols()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].Offset != syms[j].Offset {
			return syms[i].Offset < syms[j].Offset
		}
		return syms[i].Name < syms[j].Name
	})
	return syms, nil
}

// displayName demangles C++ style names exported by native-backed modules.
// Other names are returned unchanged.
func displayName(name string) string {
	if demangled := demangle.Filter(name); demangled != "" {
		return demangled
	}
	return name
}
