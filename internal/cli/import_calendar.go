package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/service"
)

// NewImportCalendarCommand 从 ICS 文件或订阅地址批量创建聚会
func NewImportCalendarCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file string
		url  string
		req  dto.ImportCalendarRequest
	)

	cmd := &cobra.Command{
		Use:   "import-calendar",
		Short: "从 ICS 日历导入聚会日期",
		Long: `展开 ICS 中的事件（支持 RRULE 与 EXDATE），为每个日期创建一场聚会。
已存在的日期会被跳过，可重复执行。

Example:
  gatherctl import-calendar --file meetings.ics --from 2024-01-01 --to 2024-06-30
  gatherctl import-calendar --url webcal://example.com/gather.ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (file == "") == (url == "") {
				return errors.New("必须且只能指定 --file 或 --url 之一")
			}

			var src io.ReadCloser
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("打开日历文件失败: %w", err)
				}
				src = f
			} else {
				body, err := service.FetchICSContent(url)
				if err != nil {
					return err
				}
				src = body
			}
			defer src.Close()

			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.svc.Calendar.ImportMeetings(cmd.Context(), src, &req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "groups: %d created, %d skipped\n", len(resp.Created), len(resp.Skipped))
			for _, d := range resp.Created {
				fmt.Fprintf(out, "  + %s\n", d)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "本地 ICS 文件")
	cmd.Flags().StringVar(&url, "url", "", "ICS 订阅地址（http/https/webcal）")
	cmd.Flags().StringVar(&req.From, "from", "", "起始日期 YYYY-MM-DD（含）")
	cmd.Flags().StringVar(&req.To, "to", "", "结束日期 YYYY-MM-DD（含）")
	return cmd
}
