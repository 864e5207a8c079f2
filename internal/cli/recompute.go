package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRecomputeCommand 按出勤记录重建全部用户的出勤聚合值
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "重建出勤次数与最近出勤日期",
		Long: `以出勤记录为准重新计算 attendance_count 与 last_attended。
用于修复历史数据或手工改库之后的校正。

Example:
  gatherctl recompute
  gatherctl recompute --user-id 7f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if userID != "" {
				if err := a.svc.Attendance.RecomputeUser(cmd.Context(), userID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recomputed user %s\n", userID)
				return nil
			}

			n, err := a.svc.Attendance.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d users\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "仅重建指定用户")
	return cmd
}
