package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// InitLogrus initializes the global logrus logger. It is called again from
// the root command once flags are parsed, so that --debug takes effect.
func InitLogrus(vp *viper.Viper) {
	if vp != nil && vp.GetBool("debug") {
		Debug = true
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		TimestampFormat: time.DateTime,
	})
	if Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func init() {
	InitLogrus(nil)
}
