package main

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/xyproto/fndiff"
)

// browse shows one tab per function pair. Left/right switch tabs, up/down
// scroll the table, q/x/Escape quit.
func browse(diffs []fndiff.FunctionDiff) error {
	app := tview.NewApplication()
	pages := tview.NewPages()
	tabs := tview.NewTextView().SetDynamicColors(true)
	for idx, d := range diffs {
		pages.AddPage(strconv.Itoa(idx), diffTable(d), true, idx == 0)
	}
	active := 0
	refreshTabs := func() {
		var b strings.Builder
		for idx, d := range diffs {
			if idx > 0 {
				b.WriteString("  ")
			}
			if idx == active {
				b.WriteString("[yellow]" + tview.Escape(d.Title()) + "[-]")
			} else {
				b.WriteString(tview.Escape(d.Title()))
			}
		}
		tabs.SetText(b.String())
	}
	refreshTabs()
	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' || ev.Rune() == 'x':
			app.Stop()
			return nil
		case ev.Key() == tcell.KeyRight && active < len(diffs)-1:
			active++
			pages.SwitchToPage(strconv.Itoa(active))
			refreshTabs()
			return nil
		case ev.Key() == tcell.KeyLeft && active > 0:
			active--
			pages.SwitchToPage(strconv.Itoa(active))
			refreshTabs()
			return nil
		}
		return ev
	})
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tabs, 1, 0, false).
		AddItem(pages, 0, 1, true)
	return app.SetRoot(flex, true).Run()
}

// diffTable renders one function pair. Exact rows keep the default colors;
// inexact alignments are blue, right-only rows teal, left-only rows purple,
// block headers aqua.
func diffTable(d fndiff.FunctionDiff) *tview.Table {
	table := tview.NewTable().SetSelectable(true, false)
	for idx, row := range d.Rows {
		left := tview.NewTableCell(row.Left).SetExpansion(1)
		right := tview.NewTableCell(row.Right).SetExpansion(1)
		switch {
		case row.Kind == fndiff.HeaderRow:
			left.SetTextColor(tcell.ColorAqua)
			right.SetTextColor(tcell.ColorAqua)
		case row.Match.Direction == fndiff.GapLeft:
			left.SetBackgroundColor(tcell.ColorTeal)
			right.SetBackgroundColor(tcell.ColorTeal)
		case row.Match.Direction == fndiff.GapRight:
			left.SetBackgroundColor(tcell.ColorPurple)
			right.SetBackgroundColor(tcell.ColorPurple)
		case !row.Match.Exact:
			left.SetBackgroundColor(tcell.ColorBlue)
			right.SetBackgroundColor(tcell.ColorBlue)
		}
		table.SetCell(idx, 0, left)
		table.SetCell(idx, 1, right)
	}
	return table
}
