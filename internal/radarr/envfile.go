package radarr

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads a dotenv file holding a captured Radarr environment.
func LoadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return values, nil
}
