package configloader

import (
	"fmt"
	"os"
)

// MaterializeEnv exports the root `env:` block into the process
// environment, once, before validation begins — grounded on
// load_env_pairs in original_source/src/core/helpers.py. Existing
// environment variables of the same name are overwritten, matching
// `os.environ |= items`.
func MaterializeEnv(doc map[string]interface{}) error {
	raw, ok := doc["env"]
	if !ok || raw == nil {
		return nil
	}
	envMap, ok := toStringMap(raw)
	if !ok {
		return fmt.Errorf("configloader: `env` must be a map of string to scalar")
	}
	for k, v := range envMap {
		if err := os.Setenv(k, fmt.Sprintf("%v", v)); err != nil {
			return fmt.Errorf("configloader: failed to set env %s: %w", k, err)
		}
	}
	return nil
}
