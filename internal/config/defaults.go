package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	chunks              = 0
	bufferSize          = 8 * 1024
	progressInterval    = 2 * time.Second
	store               = StoreText
	disableNetworkCheck = false
	networkProbe        = "1.1.1.1:53"
)

var (
	downloadDir = xdg.UserDirs.Download
	tempDir     = filepath.Join(os.TempDir(), configFileName)
	dbPath      = filepath.Join(xdg.DataHome, configFileName, configFileName+".db")
)
