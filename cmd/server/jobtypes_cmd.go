package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

func newJobTypesCmd() *cobra.Command {
	var (
		withFields bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "jobtypes",
		Short: "Print the job type registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := jobtype.Default()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(registry.All())
			}
			return printJobTypes(os.Stdout, registry.All(), withFields)
		},
	}
	cmd.Flags().BoolVar(&withFields, "fields", false, "List the sections and fields of every type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the configs as JSON")
	return cmd
}

func printJobTypes(out io.Writer, configs []*jobtype.Config, withFields bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tENDPOINT\tIMPLEMENTED\tFIELDS")
	for _, cfg := range configs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", cfg.Key, cfg.Title, cfg.APIEndpoint, cfg.Implemented, len(cfg.Fields()))
		if !withFields {
			continue
		}
		for _, section := range cfg.Sections {
			fmt.Fprintf(tw, "  %s\t\t\t\t\n", section.Title)
			for _, f := range section.Fields {
				flags := fieldFlags(&f)
				fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t\n", f.Name, f.Label, f.Type, flags)
			}
		}
	}
	return tw.Flush()
}

func fieldFlags(f *jobtype.Field) string {
	var flags []string
	if f.Required {
		flags = append(flags, "required")
	}
	if f.IsStaffPicker() {
		flags = append(flags, "staff:"+f.StaffRole)
	}
	if f.IsNotes() {
		flags = append(flags, "notes")
	}
	if f.Decimal {
		flags = append(flags, "decimal")
	}
	if f.Toggle != "" {
		flags = append(flags, "toggle:"+f.Toggle)
	}
	return strings.Join(flags, ",")
}
