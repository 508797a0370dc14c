package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdapi/cmd/gdapi/commands"
	"github.com/fivetwenty-io/gdapi/internal/constants"
)

var (
	version = constants.Version
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gdapi",
	Short: "Schema-driven REST API CLI",
	Long: `A command-line interface for APIs that describe themselves with a schema.

The CLI loads the schema of the target API version on every run and offers the
discovered types, their descriptors, and raw requests whose responses are
classified the same way the Go client does.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.gdapi/config.yml)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API base URL, including the version (e.g. https://api.example.com/v1)")
	rootCmd.PersistentFlags().String("access-key", "", "API access key")
	rootCmd.PersistentFlags().String("secret-key", "", "API secret key (prompted for when an access key is set)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("schema-file", "", "load the schema from a local file instead of the API")
	rootCmd.PersistentFlags().String("cache-namespace", "", "schema cache key prefix")
	rootCmd.PersistentFlags().Bool("skip-ssl-validation", false, "skip SSL certificate validation")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("access_key", rootCmd.PersistentFlags().Lookup("access-key"))
	_ = viper.BindPFlag("secret_key", rootCmd.PersistentFlags().Lookup("secret-key"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("schema_file", rootCmd.PersistentFlags().Lookup("schema-file"))
	_ = viper.BindPFlag("cache_namespace", rootCmd.PersistentFlags().Lookup("cache-namespace"))
	_ = viper.BindPFlag("skip_ssl_validation", rootCmd.PersistentFlags().Lookup("skip-ssl-validation"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewTypesCommand())
	rootCmd.AddCommand(commands.NewTypeCommand())
	rootCmd.AddCommand(commands.NewRequestCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".gdapi")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		// Search config in ~/.gdapi/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. GDAPI_ACCESS_KEY
	viper.SetEnvPrefix("GDAPI")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
