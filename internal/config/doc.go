// Package config provides inkwell configuration.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Overrides (CLI flags)   │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← INKWELL_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← inkwell.toml / inkwell.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load(config.WithFile("inkwell.toml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rtc := cfg.RTC()
//	fmt.Println(rtc.SetupTimeout)
//
// # Configuration Files
//
//	# inkwell.toml
//	"@include" = ["base.toml"]
//
//	[editor]
//	rootBlock = "p"
//	undoLevels = 100
//
//	[rtc]
//	script = "${HOME}/collab.lua"
//	setupTimeout = "10s"
//
//	[plugins]
//	enabled = ["lists"]
//
// # Error Handling
//
//   - ErrSettingNotFound: Setting path doesn't exist
//   - ErrTypeMismatch: Value type doesn't match expected type
//   - ErrValidationFailed: Load or Validate rejected a setting
package config
