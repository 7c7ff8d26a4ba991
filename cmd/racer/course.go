package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/racer/internal/core/track"
)

func newCourseCommand(configPath *string) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "course",
		Short: "Print the checkpoint order and fingerprint of the configured course",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			course, err := s.Course()
			if err != nil {
				return err
			}

			rows := course.Checkpoints()
			if label != "" {
				cp, err := course.Lookup(label)
				if err != nil {
					return err
				}
				rows = []*track.Checkpoint{cp}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tLABEL\tX\tY\tZ\tRADIUS")
			for _, cp := range rows {
				p := cp.Position()
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n", cp.Index(), cp.Label(), p.X, p.Y, p.Z, cp.Radius())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fingerprint %016x\n", course.Fingerprint())
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "print only the checkpoint with this label")
	return cmd
}
