package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clipsmith/clipsmith/internal/config"
	"github.com/clipsmith/clipsmith/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing clipsmith configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  clipsmith config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, .clipsmith.yaml, /etc/clipsmith/config.yaml)
  - Environment variables (CLIPSMITH_SERVER_PORT, CLIPSMITH_DATABASE_DSN, etc.)
  - Command-line flags (for some options)

Environment variables use the CLIPSMITH_ prefix and underscores for nesting.
Example: server.port -> CLIPSMITH_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Get mapstructure tag or use the field name
		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	// Load config with defaults (no file, just defaults)
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# clipsmith Configuration File")
	fmt.Println("# ============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   CLIPSMITH_SERVER_HOST, CLIPSMITH_SERVER_PORT")
	fmt.Println("#   CLIPSMITH_DATABASE_DRIVER, CLIPSMITH_DATABASE_DSN")
	fmt.Println("#   CLIPSMITH_GEMINI_API_KEY, CLIPSMITH_STORAGE_SCRATCH_BUCKET")
	fmt.Println("#   CLIPSMITH_LOGGING_LEVEL, CLIPSMITH_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
