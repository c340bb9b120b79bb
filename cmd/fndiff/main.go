package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/fndiff"
)

const versionString = "fndiff 1.0.0"

// Exit codes: 0 no diff, 1 diff found, 2 unknown format, 3 parse error or
// function not found, 4 right-hand name without a left-hand name, 100
// terminal initialization failure.

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		formatTag string
		name      string
		rightName string
	)
	exit := 0
	cmd := &cobra.Command{
		Use:           "fndiff --format <format> <left-file> <right-file>",
		Short:         "Side-by-side function-level diff of compiled artifacts",
		Version:       versionString,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exit = diff(formatTag, name, rightName, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatTag, "format", "f", "", "file format to parse")
	cmd.Flags().StringVarP(&name, "name", "n", "", "function name to compare")
	cmd.Flags().StringVar(&rightName, "right-name", "",
		"name of the function in the right-hand file, when it differs from --name")
	cmd.MarkFlagRequired("format")
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return exit
}

func diff(formatTag, name, rightName, leftPath, rightPath string) int {
	if rightName != "" && name == "" {
		fmt.Fprintln(os.Stderr, "Only right-hand function name is supplied. Don't know what to do with that.")
		return 4
	}
	format, err := fndiff.LookupFormat(formatTag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't parse %q files. Sorry.\n", formatTag)
		return 2
	}
	sink := &fndiff.RowSink{}
	sel := fndiff.Selector{Left: name, Right: rightName}
	hasDiff, err := fndiff.DiffFiles(format, leftPath, rightPath, sel, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	if len(sink.Diffs) == 0 {
		return 0
	}
	if err := browse(sink.Diffs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		return 100
	}
	if hasDiff {
		return 1
	}
	return 0
}
