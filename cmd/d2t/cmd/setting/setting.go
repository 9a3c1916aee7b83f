package setting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"douyin-scribe/internal/cmdutil"
	"douyin-scribe/internal/config"
)

// Cmd represents the setting command
var Cmd = &cobra.Command{
	Use:   "setting",
	Short: "Inspect and change the settings file",
	Long: `Inspect and change the settings file.

Keys use dots for nesting, e.g.
  d2t setting get download_path
  d2t setting set speech_recognition_engine openai
  d2t setting set speech_recognition_config.whisper.model small`,
}

func init() {
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(listCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := settingsMap()
		if err != nil {
			return err
		}
		value, err := lookup(values, args[0])
		if err != nil {
			return err
		}
		fmt.Println(render(value))
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting value and save the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := settingsMap()
		if err != nil {
			return err
		}
		settings, err := applySetting(values, args[0], args[1])
		if err != nil {
			return err
		}
		if err := settings.Save(cmdutil.ConfigPath); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the whole settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cmdutil.ConfigPath)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func settingsMap() (map[string]interface{}, error) {
	settings, err := config.Load(cmdutil.ConfigPath)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func lookup(values map[string]interface{}, key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	var current interface{} = values
	for _, part := range parts {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", key)
		}
		current, ok = node[part]
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", key)
		}
	}
	return current, nil
}

// applySetting mutates values and round-trips them through the typed
// settings so unknown keys and wrong shapes are rejected before saving.
// A numeric-looking value for a string setting is retried as plain text.
func applySetting(values map[string]interface{}, key, raw string) (*config.Settings, error) {
	if err := assign(values, key, coerce(raw)); err != nil {
		return nil, err
	}
	settings, err := typedSettings(values)
	if err == nil {
		return settings, nil
	}

	if assignErr := assign(values, key, raw); assignErr == nil {
		if settings, retryErr := typedSettings(values); retryErr == nil {
			return settings, nil
		}
	}
	return nil, fmt.Errorf("invalid value for %s: %w", key, err)
}

func typedSettings(values map[string]interface{}) (*config.Settings, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	settings := config.Default()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func assign(values map[string]interface{}, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	node := values
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	node[leaf] = value
	return nil
}

// coerce keeps booleans and numbers typed so the settings file does not
// fill up with quoted "true".
func coerce(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

func render(value interface{}) string {
	if _, ok := value.(map[string]interface{}); ok {
		data, err := json.MarshalIndent(value, "", "  ")
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(value)
}
