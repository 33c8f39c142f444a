package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/extensions/catalog"
	"github.com/srg/botlink/internal/session"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [extension]",
	Short: "List extensions or the blocks of one extension",
	Long: `Without arguments, list every supported extension.

With an extension ID, print what the extension registers with the editor:
its blocks in declaration order and the menus their arguments draw from.
The JSON format is the registration info itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBlocks,
}

var blocksFormat string

func init() {
	blocksCmd.Flags().StringVarP(&blocksFormat, "format", "f", "table", "Output format (table, json)")
}

func runBlocks(cmd *cobra.Command, args []string) error {
	if blocksFormat != "table" && blocksFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", blocksFormat)
	}
	_, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return displayFamilies(out)
	}

	family, err := catalog.Lookup(args[0])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	info := family.New(nil, session.DefaultOptions(), logger).Info()
	if blocksFormat == "json" {
		data, err := info.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return displayInfo(out, info)
}

func displayFamilies(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSERVICE")
	for _, f := range catalog.Families() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, f.ServiceUUID)
	}
	return w.Flush()
}

func displayInfo(out io.Writer, info *extension.Info) error {
	color.New(color.Bold).Fprintf(out, "%s (%s)\n\n", info.Name, info.ID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPCODE\tTYPE\tARGS\tTEXT")
	for _, b := range info.BlockList() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Opcode, b.Type, formatArgs(b.Args), b.Text)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	names := info.MenuNames()
	if len(names) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MENU\tITEMS")
	for _, name := range names {
		m, _ := info.Menu(name)
		items := make([]string, len(m.Items))
		for i, it := range m.Items {
			if it.Text == it.Value {
				items[i] = it.Value
			} else {
				items[i] = it.Value + "=" + it.Text
			}
		}
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(items, " "))
	}
	return w.Flush()
}

// formatArgs renders NAME:type[menu]=default for each argument.
func formatArgs(args []extension.Arg) string {
	if len(args) == 0 {
		return "-"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s := a.Name + ":" + string(a.Type)
		if a.Menu != "" {
			s += "[" + a.Menu + "]"
		}
		if a.Default != nil {
			s += fmt.Sprintf("=%v", a.Default)
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}
