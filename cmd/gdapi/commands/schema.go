package commands

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the schema collection",
		Long:  "Fetch the schema collection of the API version the client bootstrapped against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Request(cmd.Context(), http.MethodGet, constants.LinkSchemas, nil, nil, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			done, err := writeStructured(out, viper.GetString("output"), result)
			if done {
				return err
			}

			if coll := gdapi.AsCollection(result); coll != nil {
				return renderCollection(out, coll)
			}

			return renderValue(out, result)
		},
	}
}
