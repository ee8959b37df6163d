package vm

import (
	"sync"

	"github.com/tliron/commonlog"
)

// log resolves the logger on first use rather than at init, so that a
// backend imported by the main package is already registered.
var log = sync.OnceValue(func() commonlog.Logger {
	return commonlog.GetLogger("mixin.vm")
})
