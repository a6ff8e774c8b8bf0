package directorycmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sharding/apps/cli/wiring"
	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
)

// Command groups shard directory helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Shard directory utilities (list/add/remove/test)",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(usageCommand())
	cmd.AddCommand(addCommand())
	cmd.AddCommand(removeCommand())
	cmd.AddCommand(testCommand())
	return cmd
}

func commonFlags(c *cobra.Command, databaseURL, configPath *string) {
	c.Flags().StringVar(databaseURL, "database-url", "", "PostgreSQL connection string of the platform database")
	c.Flags().StringVar(configPath, "config", "config/sharding.toml", "Path to the sharding configuration file")
}

func listCommand() *cobra.Command {
	var (
		databaseURL string
		configPath  string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List every directory entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svcs.Resolver.GetAllPossibleShardingData(ctx)
			if err != nil {
				return fmt.Errorf("list directory: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONNECTION\tDATABASE\tTYPE")
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.Name, entry.ConnectionName, entry.DatabaseName, entry.DatabaseType)
			}
			return w.Flush()
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	return c
}

func usageCommand() *cobra.Command {
	var (
		databaseURL string
		configPath  string
	)

	c := &cobra.Command{
		Use:   "usage",
		Short: "List directory entries with the tenants assigned to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			usages, err := svcs.Resolver.DatabaseInfoNamesWithTenantNames(ctx)
			if err != nil {
				return fmt.Errorf("list usage: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOWNERSHIP\tTENANTS")
			for _, usage := range usages {
				ownership := "unused"
				if usage.HasOwnDb != nil {
					if *usage.HasOwnDb {
						ownership = "own-db"
					} else {
						ownership = "shared"
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", usage.DatabaseInfoName, ownership, strings.Join(usage.TenantNames, ", "))
			}
			return w.Flush()
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	return c
}

func addCommand() *cobra.Command {
	var (
		databaseURL    string
		configPath     string
		name           string
		connectionName string
		databaseName   string
		databaseType   string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a directory entry after dry-running its connection string",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entry := service.DatabaseInformation{
				Name:           name,
				ConnectionName: connectionName,
				DatabaseName:   databaseName,
				DatabaseType:   databaseType,
			}
			if err := svcs.Directory.Add(ctx, entry); err != nil {
				return fmt.Errorf("add entry: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added directory entry %q\n", name)
			return nil
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	c.Flags().StringVar(&name, "name", "", "Unique entry name")
	c.Flags().StringVar(&connectionName, "connection-name", "", "Connection template name from the sharding config")
	c.Flags().StringVar(&databaseName, "database-name", "", "Database/catalog/file name (empty keeps the template's database)")
	c.Flags().StringVar(&databaseType, "database-type", "", "Provider short name (SqlServer, PostgreSQL, Sqlite)")
	return c
}

func removeCommand() *cobra.Command {
	var (
		databaseURL string
		configPath  string
	)

	c := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a directory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svcs.Directory.Remove(ctx, args[0]); err != nil {
				return fmt.Errorf("remove entry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed directory entry %q\n", args[0])
			return nil
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	return c
}

func testCommand() *cobra.Command {
	var (
		databaseURL    string
		configPath     string
		name           string
		connectionName string
		databaseName   string
		databaseType   string
	)

	c := &cobra.Command{
		Use:   "test",
		Short: "Dry-run the connection string build for a candidate entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entry := service.DatabaseInformation{
				Name:           name,
				ConnectionName: connectionName,
				DatabaseName:   databaseName,
				DatabaseType:   databaseType,
			}
			if err := svcs.Resolver.TestFormingConnectionString(ctx, entry); err != nil {
				return fmt.Errorf("entry does not resolve: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Entry resolves to a valid connection string")
			return nil
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	c.Flags().StringVar(&name, "name", "", "Unique entry name")
	c.Flags().StringVar(&connectionName, "connection-name", "", "Connection template name from the sharding config")
	c.Flags().StringVar(&databaseName, "database-name", "", "Database/catalog/file name (empty keeps the template's database)")
	c.Flags().StringVar(&databaseType, "database-type", "", "Provider short name (SqlServer, PostgreSQL, Sqlite)")
	return c
}
