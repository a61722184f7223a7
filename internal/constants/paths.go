package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// ConfigSearchPaths are tried in order when no --config flag is given.
var ConfigSearchPaths = []string{
	DefaultConfigPath,
	"./config.yaml",
	"./cleanup_config.json",
}
