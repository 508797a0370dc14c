package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// typeInfo is the printable form of a type descriptor.
type typeInfo struct {
	ID                string   `json:"id"                 yaml:"id"`
	PluralName        string   `json:"plural_name"        yaml:"plural_name"`
	CollectionPath    string   `json:"collection_path"    yaml:"collection_path"`
	CollectionMethods []string `json:"collection_methods" yaml:"collection_methods"`
	ResourceMethods   []string `json:"resource_methods"   yaml:"resource_methods"`
	ResourceActions   []string `json:"resource_actions"   yaml:"resource_actions"`
	CollectionActions []string `json:"collection_actions" yaml:"collection_actions"`
	Filters           []string `json:"filters"            yaml:"filters"`
	Fields            []string `json:"fields"             yaml:"fields"`
}

func newTypeInfo(typ *gdapi.Type) typeInfo {
	return typeInfo{
		ID:                typ.ID,
		PluralName:        typ.PluralName,
		CollectionPath:    typ.CollectionPath(),
		CollectionMethods: typ.CollectionMethods,
		ResourceMethods:   typ.ResourceMethods,
		ResourceActions:   gdapi.SortedKeys(typ.ResourceActions),
		CollectionActions: gdapi.SortedKeys(typ.CollectionActions),
		Filters:           gdapi.SortedKeys(typ.CollectionFilters),
		Fields:            gdapi.SortedKeys(typ.ResourceFields),
	}
}

// NewTypesCommand creates the types command
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List discovered types",
		Long:  "Load the API schema and list every type it declares with the allowed methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			types := client.Types()

			infos := make([]typeInfo, 0, len(types))
			for _, name := range gdapi.SortedKeys(types) {
				infos = append(infos, newTypeInfo(types[name]))
			}

			out := cmd.OutOrStdout()

			done, err := writeStructured(out, viper.GetString("output"), infos)
			if done {
				return err
			}

			table := tablewriter.NewWriter(out)
			table.Header("Type", "Collection", "Collection Methods", "Resource Methods", "Actions")

			for _, info := range infos {
				_ = table.Append(
					info.ID,
					info.CollectionPath,
					strings.Join(info.CollectionMethods, ","),
					strings.Join(info.ResourceMethods, ","),
					strings.Join(info.ResourceActions, ","),
				)
			}

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

// NewTypeCommand creates the type command
func NewTypeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "type TYPE",
		Short: "Show a type descriptor",
		Long:  "Display the schema-derived descriptor of a single type: paths, methods, actions, filters and fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			typ, err := client.Type(args[0])
			if err != nil {
				return err
			}

			if typ == nil {
				return fmt.Errorf("%w: %s", ErrTypeNotFound, args[0])
			}

			info := newTypeInfo(typ)
			out := cmd.OutOrStdout()

			done, err := writeStructured(out, viper.GetString("output"), info)
			if done {
				return err
			}

			table := tablewriter.NewWriter(out)
			table.Header("Property", "Value")
			_ = table.Append("ID", info.ID)
			_ = table.Append("Plural Name", orNA(info.PluralName))
			_ = table.Append("Collection", info.CollectionPath)
			_ = table.Append("Collection Methods", strings.Join(info.CollectionMethods, ", "))
			_ = table.Append("Resource Methods", strings.Join(info.ResourceMethods, ", "))
			_ = table.Append("Resource Actions", strings.Join(info.ResourceActions, ", "))
			_ = table.Append("Collection Actions", strings.Join(info.CollectionActions, ", "))
			_ = table.Append("Filters", strings.Join(info.Filters, ", "))
			_ = table.Append("Fields", strings.Join(info.Fields, ", "))

			err = table.Render()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
