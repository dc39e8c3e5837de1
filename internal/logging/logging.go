// Package logging создает корневой logr.Logger приложения
package logging

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// New возвращает logger поверх стандартного log.
// Сообщения V(n) с n больше verbosity отбрасываются.
func New(name string, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	std := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	return stdr.NewWithOptions(std, stdr.Options{LogCaller: stdr.Error}).WithName(name)
}
