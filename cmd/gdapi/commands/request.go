package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdapi/internal/constants"
)

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// NewRequestCommand creates the request command
func NewRequestCommand() *cobra.Command {
	var (
		data        string
		dataFile    string
		queryParams []string
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send a request and print the classified response",
		Long: `Send a request relative to the API base URL (or to an absolute URL) and print
the classified response. Error responses are reported as errors.`,
		Example: `  gdapi request GET /projects --query name=web
  gdapi request POST /projects --data '{"name":"web"}'
  gdapi request POST /projects/1a5 --query action=activate`,
		Args: cobra.ExactArgs(2), //nolint:mnd // METHOD and PATH
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if !validMethods[method] {
				return fmt.Errorf("%w: %s", ErrInvalidMethod, args[0])
			}

			query, err := parseQuery(queryParams)
			if err != nil {
				return err
			}

			body, err := requestBody(data, dataFile)
			if err != nil {
				return err
			}

			client, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			contentType := ""
			if body != nil {
				contentType = constants.MIMETypeJSON
			}

			result, err := client.Request(cmd.Context(), method, args[1], query, body, contentType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			done, err := writeStructured(out, viper.GetString("output"), result)
			if done {
				return err
			}

			return renderValue(out, result)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "read the JSON request body from a file")
	cmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "query parameter as key=value (repeatable)")

	return cmd
}

// requestBody validates the JSON body and returns it as raw bytes so it is
// sent unchanged.
func requestBody(data, dataFile string) ([]byte, error) {
	if dataFile != "" {
		content, err := os.ReadFile(dataFile) //nolint:gosec // path comes from the user
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}

		data = string(content)
	}

	if data == "" {
		return nil, nil
	}

	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("%w: request body is not valid JSON", ErrInvalidBody)
	}

	return []byte(data), nil
}
