package build

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/Filipo11021/nitro/internal/config"
	"github.com/Filipo11021/nitro/internal/errors"
)

// Manifest is the build's public metadata, persisted as pretty-printed
// JSON inside the output directory.
type Manifest struct {
	Date     time.Time        `json:"date"`
	Commands ManifestCommands `json:"commands"`
}

// ManifestCommands records how to preview and deploy the produced build.
// Unset commands are omitted from the persisted JSON.
type ManifestCommands struct {
	Preview string `json:"preview,omitempty"`
	Deploy  string `json:"deploy,omitempty"`
}

// NewManifest builds the manifest for a build finishing at now. Any
// occurrence of the absolute output directory inside the command strings
// is rewritten to "." so the manifest stays portable across machines.
func NewManifest(cfg *config.Config, now time.Time) Manifest {
	return Manifest{
		Date: now,
		Commands: ManifestCommands{
			Preview: portableCommand(cfg.Commands.Preview, cfg.OutputDir()),
			Deploy:  portableCommand(cfg.Commands.Deploy, cfg.OutputDir()),
		},
	}
}

func portableCommand(command, outputDir string) string {
	if command == "" {
		return ""
	}
	return strings.ReplaceAll(command, outputDir, ".")
}

// WriteManifest persists the manifest into the output directory.
func WriteManifest(cfg *config.Config, now time.Time) error {
	manifest := NewManifest(cfg, now)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(errors.StageManifest, "failed to encode manifest", err)
	}
	data = append(data, '\n')

	path := cfg.ManifestPath()
	if err := ensureParent(path); err != nil {
		return errors.WrapPath(errors.StageManifest, path, "failed to prepare output directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapPath(errors.StageManifest, path, "failed to write manifest", err)
	}
	return nil
}
