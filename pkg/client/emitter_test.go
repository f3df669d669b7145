package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/shopeeweb/pkg/types"
)

func TestEmitter_OrderAndFiltering(t *testing.T) {
	e := newEmitter()

	var got []string
	e.on(types.EventTypeQR, func(ev *types.ClientEvent) { got = append(got, "qr1:"+ev.QR) })
	e.on(types.EventTypeReady, func(*types.ClientEvent) { got = append(got, "ready") })
	e.on(anyEvent, func(ev *types.ClientEvent) { got = append(got, "any:"+string(ev.Type)) })
	e.on(types.EventTypeQR, func(ev *types.ClientEvent) { got = append(got, "qr2:"+ev.QR) })

	e.emit(types.NewQREvent("X"))
	e.emit(types.NewReadyEvent())

	assert.Equal(t, []string{"qr1:X", "qr2:X", "any:qr", "ready", "any:ready"}, got)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	e := newEmitter()

	calls := 0
	unsubscribe := e.on(types.EventTypeQR, func(*types.ClientEvent) { calls++ })
	other := e.on(types.EventTypeQR, func(*types.ClientEvent) {})

	e.emit(types.NewQREvent("A"))
	unsubscribe()
	unsubscribe()
	e.emit(types.NewQREvent("B"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, e.count())

	other()
	assert.Equal(t, 0, e.count())
}

func TestEmitter_HandlerMaySubscribe(t *testing.T) {
	e := newEmitter()

	nested := 0
	e.on(types.EventTypeReady, func(*types.ClientEvent) {
		e.on(types.EventTypeReady, func(*types.ClientEvent) { nested++ })
	})

	e.emit(types.NewReadyEvent())
	assert.Equal(t, 0, nested, "handlers added during emit see the next event")

	e.emit(types.NewReadyEvent())
	assert.Equal(t, 1, nested)
}

func TestEmitter_Clear(t *testing.T) {
	e := newEmitter()

	calls := 0
	e.on(types.EventTypeQR, func(*types.ClientEvent) { calls++ })
	e.clear()
	e.emit(types.NewQREvent("A"))

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.count())
}

func TestQRQueue(t *testing.T) {
	q := newQRQueue()

	q.push("A")
	q.push("B")

	select {
	case <-q.ready():
	default:
		t.Fatal("expected ready signal")
	}
	assert.Equal(t, []string{"A", "B"}, q.drain())
	assert.Empty(t, q.drain())

	q.push("C")
	q.close()
	q.push("D")
	assert.Empty(t, q.drain())
}
