package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand 执行数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Long: `PostgreSQL 执行内置的版本化 SQL 迁移；SQLite 使用 AutoMigrate 建表。

Example:
  gatherctl migrate --config ./config/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrated (%s)\n", a.db.Dialector.Name())
			return nil
		},
	}
}
