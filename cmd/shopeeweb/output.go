package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/shopeeweb/pkg/qrimage"
	"github.com/entrhq/shopeeweb/pkg/types"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA") // Primary accent
	mintGreen  = lipgloss.Color("#A8E6CF") // Success states
	mutedGray  = lipgloss.Color("#6B7280") // Secondary text
	errorRed   = lipgloss.Color("203")     // Failures

	eventStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)

// eventPrinter renders client events and saves QR codes.
type eventPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	qrOut   string
	qrWidth int
	copyQR  bool

	// copy is clipboard.WriteAll, replaced in tests
	copy func(string) error
}

func newEventPrinter(qrOut string, qrWidth int, copyQR bool) *eventPrinter {
	return &eventPrinter{
		out:     os.Stdout,
		qrOut:   qrOut,
		qrWidth: qrWidth,
		copyQR:  copyQR,
		copy:    clipboard.WriteAll,
	}
}

func (p *eventPrinter) status(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, detailStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *eventPrinter) print(event *types.ClientEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := string(event.Type)
	switch event.Type {
	case types.EventTypeQR:
		fmt.Fprintln(p.out, eventStyle.Render(label), detailStyle.Render(p.saveQR(event.QR)))

	case types.EventTypeAuthenticated:
		fmt.Fprintln(p.out, successStyle.Render(label), detailStyle.Render(fmt.Sprintf("%+v", event.Payload)))

	case types.EventTypeReady, types.EventTypeRemoteSessionSaved:
		fmt.Fprintln(p.out, successStyle.Render(label))

	case types.EventTypeAuthFailure:
		fmt.Fprintln(p.out, failureStyle.Render(label), detailStyle.Render(fmt.Sprintf("%v", event.Payload)))

	case types.EventTypeDisconnected:
		fmt.Fprintln(p.out, failureStyle.Render(label), detailStyle.Render(event.Reason))

	case types.EventTypeStateChanged:
		fmt.Fprintln(p.out, eventStyle.Render(label), detailStyle.Render(string(event.State)))

	default:
		fmt.Fprintln(p.out, eventStyle.Render(label))
	}
}

// saveQR writes and copies the QR payload as configured and describes
// where it went.
func (p *eventPrinter) saveQR(qr string) string {
	detail := fmt.Sprintf("%d byte payload", len(qr))

	if p.qrOut != "" {
		if err := qrimage.WriteFile(p.qrOut, qr, p.qrWidth); err != nil {
			detail += fmt.Sprintf(", not saved: %v", err)
		} else {
			detail += ", saved to " + p.qrOut
		}
	}

	if p.copyQR {
		if err := p.copy(qr); err != nil {
			detail += fmt.Sprintf(", not copied: %v", err)
		} else {
			detail += ", copied to clipboard"
		}
	}
	return detail
}
