package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# condor-trader configuration

[trading]
# "virtual" simulates fills locally, "live" sends orders to the broker
mode = "virtual"
underlying = "NSE:NIFTY 50"
chain_name = "NIFTY"
lot_size = 50
strike_step = 50.0
chain_window = 12
eval_time = "09:00:00"
exit_time = "12:45:00"
selection_time = "12:59:30"
entry_time = "13:00:00"
target_pnl = 3000.0
stop_loss_pnl = -2000.0

[notifications]
enabled = true
level = "all" # all, trades_only, errors_only

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# condor-trader credentials
# Values can also be supplied via ZERODHA_API_KEY, ZERODHA_API_SECRET
# and ZERODHA_ACCESS_TOKEN environment variables.

[zerodha]
api_key = ""
api_secret = ""
access_token = ""
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate)
}

func writeTemplate(configDir, name, content string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
