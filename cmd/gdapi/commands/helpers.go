package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
	"github.com/fivetwenty-io/gdapi/pkg/gdclient"
)

// Output formats.
const (
	OutputFormatTable = constants.FormatTable
	OutputFormatJSON  = constants.FormatJSON
	OutputFormatYAML  = constants.FormatYAML

	NotAvailable = constants.NotAvailable
)

// Common static errors used throughout the commands package.
var (
	ErrAPIEndpointRequired = constants.ErrNoAPIConfigured
	ErrInvalidQueryParam   = constants.ErrInvalidQueryParam
	ErrUnknownOutputFormat = constants.ErrInvalidOutputFormat
	ErrInvalidMethod       = constants.ErrInvalidMethod
	ErrTypeNotFound        = errors.New("type not found")
	ErrInvalidBody         = errors.New("invalid request body")
)

// newClient builds a client from flags, environment and config file.
func newClient(ctx context.Context) (gdapi.Client, error) {
	endpoint := viper.GetString("api")
	if endpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	accessKey := viper.GetString("access_key")
	secretKey := viper.GetString("secret_key")

	var secret gdapi.Credential = gdapi.Literal(secretKey)
	if accessKey != "" && secretKey == "" {
		secret = gdapi.Provider(promptSecret)
	}

	opts := []gdapi.Option{
		gdapi.WithCacheNamespace(viper.GetString("cache_namespace")),
		gdapi.WithSchemaFile(viper.GetString("schema_file")),
	}

	if viper.GetBool("skip_ssl_validation") {
		opts = append(opts, gdapi.WithTLS(false, "", ""))
	}

	if viper.GetBool("verbose") {
		logger, err := gdapi.NewZapLogger("debug")
		if err != nil {
			return nil, err
		}

		opts = append(opts, gdapi.WithLogger(logger), gdapi.WithDebug(true))
	}

	if viper.IsSet("cache") {
		cache, err := cacheFromConfig(ctx)
		if err != nil {
			return nil, err
		}

		opts = append(opts, gdapi.WithCache(cache))
	}

	if viper.IsSet("options") {
		opts = append(opts, gdapi.WithOverrides(viper.GetStringMap("options")))
	}

	client, err := gdclient.New(ctx, endpoint, gdapi.Literal(accessKey), secret, opts...)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// cacheFromConfig reads the "cache" section of the config file, e.g.
//
//	cache:
//	  type: redis
//	  redis:
//	    addr: localhost:6379
func cacheFromConfig(ctx context.Context) (gdapi.Cache, error) {
	var config gdapi.CacheConfig

	err := viper.UnmarshalKey("cache", &config)
	if err != nil {
		return nil, fmt.Errorf("reading cache configuration: %w", err)
	}

	cache, err := gdapi.NewCacheFromConfig(ctx, &config)
	if err != nil {
		return nil, fmt.Errorf("creating schema cache: %w", err)
	}

	return cache, nil
}

func promptSecret() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in an int

	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read secret key: %w", err)
		}

		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Secret key: ")

	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read secret key: %w", err)
	}

	return string(secret), nil
}

// parseQuery turns repeated key=value flags into url.Values.
func parseQuery(params []string) (url.Values, error) {
	query := url.Values{}

	for _, param := range params {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidQueryParam, param)
		}

		query.Add(key, value)
	}

	return query, nil
}

// toPlain renders classified values back into JSON-shaped data.
func toPlain(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}

	var plain any

	err = json.Unmarshal(data, &plain)
	if err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	return plain, nil
}

// writeStructured writes value as JSON or YAML. It reports false for the
// table format so callers can render their own table.
func writeStructured(out io.Writer, format string, value any) (bool, error) {
	switch format {
	case OutputFormatJSON:
		plain, err := toPlain(value)
		if err != nil {
			return true, err
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(plain)
	case OutputFormatYAML:
		plain, err := toPlain(value)
		if err != nil {
			return true, err
		}

		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(plain)
	case OutputFormatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", ErrUnknownOutputFormat, format)
	}
}

// renderValue prints a classified response as a table: one row per element
// for collections, one row per attribute otherwise.
func renderValue(out io.Writer, value any) error {
	if coll := gdapi.AsCollection(value); coll != nil {
		return renderCollection(out, coll)
	}

	res := gdapi.AsResource(value)
	if res == nil {
		plain, err := toPlain(value)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, formatCell(plain))

		return err
	}

	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	for _, key := range gdapi.SortedKeys(res.Fields()) {
		if key == "links" || key == "actions" {
			continue
		}

		_ = table.Append(key, formatCell(res.Fields()[key]))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderCollection(out io.Writer, coll *gdapi.Collection) error {
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Type", "Name", "State")

	for _, item := range coll.Items() {
		res := gdapi.AsResource(item)
		if res == nil {
			_ = table.Append(formatCell(item), "", "", "")

			continue
		}

		_ = table.Append(orNA(res.ID()), orNA(res.Type()), orNA(res.String("name")), orNA(res.String("state")))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, err = fmt.Fprintf(out, "%d %s item(s)\n", coll.Len(), orNA(coll.ResourceType()))

	return err
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool, float64, int:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}

func orNA(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}
