package history

import "codeberg.org/mutker/pwmctl/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	backupDirName  = "backups"
)

type Config struct {
	DBPath  string
	Enabled bool
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if history is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
