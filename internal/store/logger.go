package store

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// badgerLogger routes badger's own logging into zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	emit(log.Error(), format, args)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	emit(log.Warn(), format, args)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	emit(log.Debug(), format, args)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	emit(log.Trace(), format, args)
}

func emit(ev *zerolog.Event, format string, args []interface{}) {
	ev.Str("module", "store.badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
