package skystack

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config struct
type Config struct {
	Values map[string]string
}

// Load /etc/skystack.conf and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	// Merge SKYSTACK_* env overrides
	mergeEnvOverrides(cfg)

	return cfg, nil
}

// Merge SKYSTACK_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SKYSTACK_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func initConfig(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: cannot determine home directory, using /tmp: %v", err)
		home = os.TempDir()
	}

	Prefix = cfg.Values["SKYSTACK_PREFIX"]
	if Prefix == "" {
		Prefix = "/usr/local"
	}
	Prefix = strings.TrimRight(Prefix, "/")

	WorkDir = cfg.Values["SKYSTACK_WORKDIR"]
	if WorkDir == "" {
		WorkDir = filepath.Join(home, "skystack-build")
	}

	LogDir = cfg.Values["SKYSTACK_LOG_DIR"]
	if LogDir == "" {
		LogDir = filepath.Join(home, ".cache", "skystack")
	}

	WantDebug = cfg.Values["SKYSTACK_DEBUG"]
	Debug = WantDebug == "1"

	JobsOverride = 0
	if jobs := cfg.Values["SKYSTACK_JOBS"]; jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil || n < 1 {
			log.Printf("Warning: ignoring invalid SKYSTACK_JOBS=%q", jobs)
		} else {
			JobsOverride = n
		}
	}

	CmdTimeout = 0
	if raw := cfg.Values["SKYSTACK_TIMEOUT"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			log.Printf("Warning: ignoring invalid SKYSTACK_TIMEOUT=%q", raw)
		} else {
			CmdTimeout = d
		}
	}

	BundleFormat = cfg.Values["SKYSTACK_BUNDLE"]
	switch BundleFormat {
	case "":
		BundleFormat = "gz"
	case "gz", "zst":
	default:
		log.Printf("Warning: unknown SKYSTACK_BUNDLE=%q, using gz", BundleFormat)
		BundleFormat = "gz"
	}
}
