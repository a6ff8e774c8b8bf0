package tenantcmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-sharding/apps/cli/wiring"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
)

// Command groups tenant lifecycle helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (list/create/delete)",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(createCommand())
	cmd.AddCommand(deleteCommand())
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
		Short: "List registered tenants and their database placement",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tenants, err := svcs.Tenants.ListTenants(ctx)
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENTRY\tOWN-DB")
			for _, t := range tenants {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", t.ID, t.Name, t.DatabaseInfoName, t.HasOwnDb)
			}
			return w.Flush()
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	return c
}

func createCommand() *cobra.Command {
	var (
		databaseURL      string
		configPath       string
		tenantName       string
		ownDB            bool
		databaseInfoName string
		connectionName   string
		providerName     string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant and prepare its database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tenant, err := svcs.Tenants.CreateTenantDatabase(ctx, service.CreateInput{
				TenantName:           tenantName,
				HasOwnDb:             &ownDB,
				DatabaseInfoName:     databaseInfoName,
				ConnectionStringName: connectionName,
				DbProviderShortName:  providerName,
			})
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s) on entry %q\n", tenant.Name, tenant.ID, tenant.DatabaseInfoName)
			return nil
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	c.Flags().StringVar(&tenantName, "tenant-name", "", "Name of the tenant to create")
	c.Flags().BoolVar(&ownDB, "own-db", false, "Give the tenant its own database instead of sharing one")
	c.Flags().StringVar(&databaseInfoName, "entry", "", "Directory entry to join (required without --own-db)")
	c.Flags().StringVar(&connectionName, "connection-name", "", "Connection template for the new entry (required with --own-db)")
	c.Flags().StringVar(&providerName, "database-type", "", "Provider short name for the new entry (required with --own-db)")
	return c
}

func deleteCommand() *cobra.Command {
	var (
		databaseURL string
		configPath  string
	)

	c := &cobra.Command{
		Use:   "delete <tenant-id>",
		Short: "Delete a tenant and its database artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid tenant id %q: %w", args[0], err)
			}

			svcs, cleanup, err := wiring.Build(ctx, databaseURL, configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svcs.Tenants.DeleteTenantDatabase(ctx, id); err != nil {
				return fmt.Errorf("delete tenant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s deleted\n", id)
			return nil
		},
	}
	commonFlags(c, &databaseURL, &configPath)
	return c
}
