package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docchat/chatmarkup/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chatmarkup configuration",
	Long: `View or edit your chatmarkup configuration.

Examples:
  chatmarkup config                        # show effective config
  chatmarkup config init                   # write defaults
  chatmarkup config set serve.port 9000
  chatmarkup config get render.format`,
	RunE: configShow, // Default to show
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  configInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments. The resulting file
must still be a valid configuration.

Examples:
  chatmarkup config set render.format terminal
  chatmarkup config set serve.session_ttl 10m
  chatmarkup config set serve.cors_origins https://a.example,https://b.example`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configKeyCompletion,
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Get a configuration value from the config file",
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configKeyCompletion,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configInitCmd, configSetCmd, configGetCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}

// configFilePath is the file config set/get/init operate on.
func configFilePath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.GetConfigPath()
}

func configShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	path, err := configFilePath()
	if err != nil {
		return err
	}
	status := "not found, using defaults"
	if config.Exists(path) {
		status = "loaded"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n%s", path, status, out)
	return nil
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	path, err := configFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if config.Exists(path) && !configInitForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config: %s\n", path)
	return nil
}

// configSet sets a configuration value while preserving comments
func configSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	path, err := configFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Read existing file or create empty document
	var root yaml.Node
	original, err := os.ReadFile(path)
	existed := err == nil
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	} else if err := yaml.Unmarshal(original, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	} else if root.Kind == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}

	if err := setYAMLValue(&root, strings.Split(key, "."), value); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Roll back values the loader rejects.
	if _, err := config.LoadFile(path); err != nil {
		if existed {
			_ = os.WriteFile(path, original, 0600)
		} else {
			_ = os.Remove(path)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

// setYAMLValue navigates/creates the path in a yaml.Node tree and sets the value
func setYAMLValue(root *yaml.Node, path []string, value string) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	if current.Kind != yaml.MappingNode {
		return fmt.Errorf("root is not a mapping")
	}

	for i, part := range path {
		isLast := i == len(path)-1

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value != part {
				continue
			}
			if isLast {
				valueNode := current.Content[j+1]
				valueNode.Value = value
				valueNode.Tag = ""
				valueNode.Kind = yaml.ScalarNode
				valueNode.Style = 0
				valueNode.Content = nil
			} else {
				current = current.Content[j+1]
				if current.Kind != yaml.MappingNode {
					current.Kind = yaml.MappingNode
					current.Content = nil
					current.Value = ""
					current.Tag = ""
				}
			}
			found = true
			break
		}
		if found {
			continue
		}

		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: part}
		if isLast {
			current.Content = append(current.Content, keyNode, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
		} else {
			mapping := &yaml.Node{Kind: yaml.MappingNode}
			current.Content = append(current.Content, keyNode, mapping)
			current = mapping
		}
	}

	return nil
}

// configGet gets a configuration value
func configGet(cmd *cobra.Command, args []string) error {
	path, err := configFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file does not exist")
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	value, err := getYAMLValue(&root, strings.Split(args[0], "."))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// getYAMLValue navigates the yaml.Node tree and returns the value at path
func getYAMLValue(root *yaml.Node, path []string) (string, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return "", fmt.Errorf("invalid document structure")
	}

	current := root.Content[0]
	for _, part := range path {
		if current.Kind != yaml.MappingNode {
			return "", fmt.Errorf("path not found: expected mapping")
		}

		found := false
		for j := 0; j < len(current.Content); j += 2 {
			if current.Content[j].Value == part {
				current = current.Content[j+1]
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("key not found: %s", part)
		}
	}

	switch current.Kind {
	case yaml.ScalarNode:
		return current.Value, nil
	case yaml.SequenceNode:
		// Lists read back in the comma form config set accepts.
		items := make([]string, 0, len(current.Content))
		for _, item := range current.Content {
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("value is not a list of scalars")
			}
			items = append(items, item.Value)
		}
		return strings.Join(items, ","), nil
	}
	return "", fmt.Errorf("value is not a scalar")
}

var configKeys = []string{
	"render.format", "render.width",
	"stream.chunk_size", "stream.delay",
	"serve.host", "serve.port", "serve.token", "serve.session_ttl", "serve.session_max",
	"serve.cors_origins",
	"log.level",
}

func configKeyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		if len(args) == 1 && args[0] == "render.format" {
			return config.Formats, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, k := range configKeys {
		if strings.HasPrefix(k, toComplete) {
			out = append(out, k)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
