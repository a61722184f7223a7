package constants

import (
	"path/filepath"
	"regexp"
	"testing"
)

func TestDefaultVersion(t *testing.T) {
	versionPattern := `^\d+\.\d+\.\d+(-[\w\.-]+)?$`
	matched, err := regexp.MatchString(versionPattern, DefaultVersion)
	if err != nil {
		t.Fatalf("Failed to compile version pattern: %v", err)
	}
	if !matched {
		t.Errorf("DefaultVersion %q does not follow semantic versioning", DefaultVersion)
	}
}

func TestConfigSearchPaths(t *testing.T) {
	if len(ConfigSearchPaths) == 0 || ConfigSearchPaths[0] != DefaultConfigPath {
		t.Fatalf("ConfigSearchPaths must start with DefaultConfigPath, got %v", ConfigSearchPaths)
	}

	wantExt := []string{".toml", ".yaml", ".json"}
	for i, p := range ConfigSearchPaths {
		if filepath.Ext(p) != wantExt[i] {
			t.Errorf("ConfigSearchPaths[%d] = %s, want extension %s", i, p, wantExt[i])
		}
	}
}

func TestDefaultEnvPath(t *testing.T) {
	if DefaultEnvPath != "./.env" {
		t.Errorf("DefaultEnvPath = %s, want './.env'", DefaultEnvPath)
	}
}
