// Package config loads the timebank client configuration.
//
// # Resolution Order
//
//  1. ~/.config/timebank/config.toml, or the path given with -config
//  2. .env in the working directory (TIMEBANK_* keys only)
//  3. TIMEBANK_* process environment variables
//
// Later sources override earlier ones. A missing config file or .env is not
// an error; missing or empty fields fall back to defaults.
//
// # Keys
//
//	api_url        TIMEBANK_API_URL        http://localhost:8080/api/v1
//	log_dir        TIMEBANK_LOG_DIR        ~/.local/share/timebank/logs
//	state_path     TIMEBANK_STATE_PATH     ~/.config/timebank/state.toml
//	poll_seconds   TIMEBANK_POLL_SECONDS   15
//	page_size      TIMEBANK_PAGE_SIZE      10
//	jitsi_domain   TIMEBANK_JITSI_DOMAIN   meet.jit.si
//	rollbar_token  TIMEBANK_ROLLBAR_TOKEN  (empty, forwarding disabled)
//	environment    TIMEBANK_ENV            development
//
// Tilde expansion is applied to log_dir and state_path.
package config
