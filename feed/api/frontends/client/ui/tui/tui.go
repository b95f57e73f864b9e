// Package tui provides the terminal interface for the feed client.
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type App interface {
	SendMessageHandler(text string) error
}

// =============================================================================

type TUI struct {
	tviewApp *tview.Application
	flex     *tview.Flex
	textView *tview.TextView
	textArea *tview.TextArea
	button   *tview.Button
	app      App
}

func New(title string) *TUI {
	var ui TUI

	app := tview.NewApplication()

	// -------------------------------------------------------------------------

	textView := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetWordWrap(true).
		SetChangedFunc(func() {
			app.Draw()
		})

	textView.SetBorder(true)
	textView.SetTitle(fmt.Sprintf("*** %s ***", title))

	// -------------------------------------------------------------------------

	button := tview.NewButton("SUBMIT")
	button.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen).Bold(true))
	button.SetActivatedStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen).Bold(true))
	button.SetBorder(true)
	button.SetBorderColor(tcell.ColorGreen)

	// -------------------------------------------------------------------------

	textArea := tview.NewTextArea()
	textArea.SetWrap(false)
	textArea.SetPlaceholder("Enter message here...")
	textArea.SetBorder(true)
	textArea.SetBorderPadding(0, 0, 1, 0)

	// -------------------------------------------------------------------------

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 5, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(textArea, 0, 90, false).
			AddItem(button, 0, 10, false),
			0, 1, false)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		}

		return event
	})

	ui.tviewApp = app
	ui.flex = flex
	ui.textView = textView
	ui.textArea = textArea
	ui.button = button

	button.SetSelectedFunc(ui.buttonHandler)

	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			ui.buttonHandler()
			return nil
		}
		return event
	})

	return &ui
}

func (ui *TUI) SetApp(app App) {
	ui.app = app
}

func (ui *TUI) Run() error {
	return ui.tviewApp.SetRoot(ui.flex, true).EnableMouse(true).Run()
}

func (ui *TUI) WriteText(id string, msg string) {
	ui.textView.ScrollToEnd()

	switch id {
	case "system":
		fmt.Fprintln(ui.textView, "-----")
		fmt.Fprintln(ui.textView, msg)

	default:
		fmt.Fprintln(ui.textView, msg)
	}
}

// =============================================================================

func (ui *TUI) buttonHandler() {
	msg := ui.textArea.GetText()
	if msg == "" {
		return
	}

	if ui.app == nil {
		return
	}

	if err := ui.app.SendMessageHandler(msg); err != nil {
		ui.WriteText("system", fmt.Sprintf("Error sending message: %s", err))
		return
	}

	ui.textArea.SetText("", false)
}
