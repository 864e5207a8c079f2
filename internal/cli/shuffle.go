package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/service"
)

type shuffleOptions struct {
	GroupID string
	Date    string
	Part    string
	Size    int
	Seed    uint64
	JSON    bool
}

// NewShuffleCommand 为指定聚会场次重新分组
func NewShuffleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &shuffleOptions{}

	cmd := &cobra.Command{
		Use:   "shuffle",
		Short: "为聚会场次重新分组",
		Long: `读取该场次全部出勤用户并整体替换分组结果。
--seed 非 0 时结果可复现。

Example:
  gatherctl shuffle --date 2024-01-05 --part first --size 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			part, err := model.ParsePart(opts.Part)
			if err != nil {
				return err
			}

			var teamOpts []service.TeamOption
			if opts.Seed != 0 {
				teamOpts = append(teamOpts, service.WithRand(newRand(opts.Seed)))
			}
			a, err := bootstrap(rootOpts, teamOpts...)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			groupID, err := a.resolveGroup(ctx, opts.GroupID, opts.Date, false)
			if err != nil {
				return err
			}

			size := opts.Size
			if size == 0 {
				size = a.svc.Team.DefaultTeamSize()
			}
			result, err := a.svc.Team.Shuffle(ctx, groupID, part, size)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(out, "%d attendees → %d teams\n", result.TotalAttendees, result.TeamCount)
			for _, t := range result.Teams {
				names := make([]string, 0, len(t.Members))
				for _, m := range t.Members {
					name := m.Username
					if m.IsLeader {
						name += "*"
					}
					names = append(names, name)
				}
				fmt.Fprintf(out, "  #%d (%d): %s\n", t.Number, len(t.Members), strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.GroupID, "group-id", "", "聚会 ID")
	cmd.Flags().StringVar(&opts.Date, "date", "", "聚会日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Part, "part", "", "场次 first/second（必填）")
	cmd.Flags().IntVar(&opts.Size, "size", 0, "每组人数（默认取配置 team.default_size）")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "随机种子")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "以 JSON 输出")
	_ = cmd.MarkFlagRequired("part")
	return cmd
}
