package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bcfreq/internal/bytecode"
	"bcfreq/internal/image"
	"bcfreq/internal/ui/colorize"
)

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [file]",
		Short: "Print the decoded instruction listing",
		Long: `Decode the code section from offset 0 to the stop marker and print one
line per instruction with its code offset.`,
		Example: `
# List every instruction
bcfreq dump program.bc
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := openImage(args[0], a.cfg)
			if err != nil {
				return err
			}
			defer img.Close()

			lines, _, err := listing(img)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range lines {
				if colorize.Enabled() {
					line = colorize.Line(line)
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// listing renders the code section as "%08x  text" lines ending with the
// stop marker. index maps each instruction offset to its line.
func listing(img *image.Image) (lines []string, index map[int]int, err error) {
	index = make(map[int]int)
	end := 0
	err = bytecode.Walk(img, func(off int, in bytecode.Inst) error {
		text, err := bytecode.Format(in)
		if err != nil {
			return err
		}
		index[off] = len(lines)
		lines = append(lines, fmt.Sprintf("%08x  %s", off, text))
		end = off + in.Len()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	index[end] = len(lines)
	lines = append(lines, fmt.Sprintf("%08x  %s", end, bytecode.MustFormat(bytecode.Stop{})))
	return lines, index, nil
}
