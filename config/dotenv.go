package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	. "hello-whisper/logging"
)

// LoadDotEnv reads path and exports its variables. Variables already set in
// the environment win. A missing file is not an error.
func LoadDotEnv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	L_debug("config: loaded environment file", "path", path, "vars", len(vars))

	return nil
}
