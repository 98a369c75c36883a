package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/daedaleanai/tbgen/log"
)

// Config holds the tool-wide settings. Testbench contents live in description files,
// not here.
type Config struct {
	// Simulator selects the launcher used by `tbgen run`: icarus, xsim or questa.
	Simulator string `mapstructure:"simulator"`
	// WorkDir is where exchange files and generated sources are placed.
	WorkDir string `mapstructure:"work_dir"`
	// PollAttempts and PollInterval bound the wait for simulator output files.
	PollAttempts int           `mapstructure:"poll_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Timescale is emitted at the top of every generated testbench.
	Timescale string `mapstructure:"timescale"`
	// Preserve keeps exchange files after a run regardless of per-file settings.
	Preserve bool `mapstructure:"preserve"`
	// DumpVcd makes the simulator record all signals to <testbench>.vcd.
	DumpVcd bool `mapstructure:"dump_vcd"`
	// SimulatorFlags holds extra command line flags per simulator tool (e.g. "vlog").
	SimulatorFlags map[string]string `mapstructure:"simulator_flags"`
}

const configFileName string = "config"
const envPrefix string = "TBGEN"

// Defaults used when neither the config file nor the environment say otherwise.
const (
	DefaultSimulator    = "icarus"
	DefaultWorkDir      = "."
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
	DefaultTimescale    = "1ps/1ps"
)

var config *Config

func getConfigDir() (string, error) {
	if dir, ok := os.LookupEnv("TBGEN_CONFIG_DIR"); ok {
		return dir, nil
	}

	if xdgConfigHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return path.Join(xdgConfigHome, "tbgen"), nil
	}

	homeDir, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("Unable to locate the configuration directory: %s", err)
	}
	return path.Join(homeDir, ".config", "tbgen"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("simulator", DefaultSimulator)
	v.SetDefault("work_dir", DefaultWorkDir)
	v.SetDefault("poll_attempts", DefaultPollAttempts)
	v.SetDefault("poll_interval", DefaultPollInterval.String())
	v.SetDefault("timescale", DefaultTimescale)
	v.SetDefault("preserve", false)
	v.SetDefault("dump_vcd", false)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// migrateLegacyKeys maps configuration shapes of older releases onto the current keys.
func migrateLegacyKeys(v *viper.Viper) {
	if v.IsSet("rtl_simulator") && !v.InConfig("simulator") {
		log.Warning("Configuration key `rtl_simulator` is deprecated, use `simulator`\n")
		v.Set("simulator", v.GetString("rtl_simulator"))
	}

	switch seconds := v.Get("poll_interval").(type) {
	case int:
		log.Warning("Numeric `poll_interval` is deprecated, use a duration such as `%ds`\n", seconds)
		v.Set("poll_interval", (time.Duration(seconds) * time.Second).String())
	case float64:
		log.Warning("Numeric `poll_interval` is deprecated, use a duration such as `%gs`\n", seconds)
		v.Set("poll_interval", time.Duration(seconds*float64(time.Second)).String())
	}
}

// Load reads the configuration from the given directory. A missing configuration file
// is not an error, defaults are used instead.
func Load(configDir string) (Config, error) {
	v := newViper()
	if configDir != "" {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("reading configuration in `%s`: %s", configDir, err)
			}
			log.Debug("No configuration file in `%s`. Using default configuration\n", configDir)
		} else {
			log.Debug("Loaded configuration from `%s`\n", v.ConfigFileUsed())
		}
	}

	migrateLegacyKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %s", err)
	}
	if cfg.PollAttempts < 1 {
		log.Warning("`poll_attempts` must be positive, using %d\n", DefaultPollAttempts)
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.SimulatorFlags == nil {
		cfg.SimulatorFlags = map[string]string{}
	}
	return cfg, nil
}

func loadConfiguration() Config {
	configDir, err := getConfigDir()
	if err != nil {
		log.Debug("%s. Using default configuration\n", err)
		configDir = ""
	}

	cfg, err := Load(configDir)
	if err != nil {
		log.Warning("%s. Using default configuration\n", err)
		cfg, _ = Load("")
	}

	log.Debug("Running with configuration: %+v\n", cfg)
	return cfg
}

// GetConfig returns the configuration of the current user, loading it on first use.
func GetConfig() Config {
	if config == nil {
		loadedConfig := loadConfiguration()
		config = &loadedConfig
	}

	return *config
}
