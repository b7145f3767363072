package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gradebench/gradebench/internal/progress"
	"github.com/gradebench/gradebench/internal/sdk"
)

func init() {
	rootCmd.AddCommand(newGroupsCmd())
}

func newGroupsCmd() *cobra.Command {
	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect and edit course group assignments",
	}
	groupsCmd.AddCommand(newGroupsShowCmd())
	groupsCmd.AddCommand(newGroupsMoveCmd())
	return groupsCmd
}

func newGroupsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <courseID>",
		Short: "Show the group assignment of every student in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			editor, client, err := newGroupEditor(cmd, args[0])
			if err != nil {
				return err
			}
			defer client.Close()

			if err := editor.Load(cmd.Context()); err != nil {
				return err
			}

			assignments := editor.Current()
			studentIDs := make([]string, 0, len(assignments))
			for id := range assignments {
				studentIDs = append(studentIDs, id)
			}
			sort.Strings(studentIDs)

			out := cmd.OutOrStdout()
			for _, id := range studentIDs {
				group := "(unassigned)"
				if g := assignments[id]; g != nil {
					group = *g
				}
				fmt.Fprintf(out, "%-12s %s\n", id, group)
			}
			return nil
		},
	}
}

func newGroupsMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <courseID> <studentID> <groupID>",
		Short: "Move a student to a group, or unassign with '-'",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			courseID, studentID, groupID := args[0], args[1], args[2]

			editor, client, err := newGroupEditor(cmd, courseID)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := editor.Load(cmd.Context()); err != nil {
				return err
			}

			if _, ok := editor.Current()[studentID]; !ok {
				return fmt.Errorf("student %s is not enrolled in course %s", studentID, courseID)
			}

			if groupID == "-" {
				editor.Assign(studentID, nil)
			} else {
				editor.Assign(studentID, &groupID)
			}

			if !editor.Dirty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No change")
				return nil
			}
			if err := editor.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Saved")
			return nil
		},
	}
}

func newGroupEditor(cmd *cobra.Command, courseID string) (*progress.GroupEditor, *sdk.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	client, err := sdk.New(cfg.DaemonURL, cfg.AuthToken)
	if err != nil {
		return nil, nil, err
	}

	editor := progress.NewGroupEditor(progress.EditorConfig{
		CourseID: courseID,
		Saver:    client,
		Loader:   client,
	})
	return editor, client, nil
}
