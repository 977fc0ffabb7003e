// Package initcmder provides the init command for initializing a local
// .memhandler directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/dotdir"
)

const (
	configFile   = "config.toml"
	fetchTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .memhandler/ directory in the current working directory.

Creates a local .memhandler/ directory that takes precedence over
~/.memhandler/ for configuration, stored credentials and the default SQLite
databases. A config.toml with default values is written unless one exists.

Use --preset to start from a named preset (openai, ollama, platform) or from
a config.toml served at an http(s) URL. A preset always overwrites config.toml.

Examples:
  memhandler init
  memhandler init --preset ollama
  memhandler init --preset https://example.com/memhandler/config.toml`

const initShortDesc string = "Initialize a local .memhandler/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Preset name (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(w io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dotdir.DirName, err)
	}

	path := filepath.Join(dir, configFile)

	var data []byte
	switch {
	case preset == "":
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(w, "Already initialized: %s\n", dir)
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking config: %w", err)
		}
		data, err = config.EncodeConfigTOML(config.NewDefaultConfig())

	case isURL(preset):
		data, err = fetchRemoteConfig(preset)

	default:
		var cfg *config.Config
		cfg, err = config.PresetConfig(preset)
		if err == nil {
			data, err = config.EncodeConfigTOML(cfg)
		}
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Initialized %s directory: %s\n", dotdir.DirName, dir)
	return nil
}

// fetchRemoteConfig downloads a config.toml. The payload must parse before
// it is returned.
func fetchRemoteConfig(url string) ([]byte, error) {
	resp, err := resty.New().SetTimeout(fetchTimeout).R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode())
	}

	body := resp.Body()
	if _, err := config.ParseConfigTOML(body); err != nil {
		return nil, err
	}
	return body, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
