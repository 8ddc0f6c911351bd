package memory

import (
	"testing"

	"github.com/rustyeddy/signalbot/store"
	"github.com/rustyeddy/signalbot/store/storetest"
)

func TestMemoryBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return New()
	})
}
