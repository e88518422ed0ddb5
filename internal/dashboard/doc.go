// Package dashboard implements the full-screen operations console.
//
// The dashboard is a Bubble Tea program that drives a console.Engine. Both
// pollers run on their own tea.Tick timers; every fetch runs as a tea.Cmd
// and comes back as a message carrying its sequence number, so Update is
// the only place state changes.
//
// # Layout
//
//	v2dash  http://127.0.0.1:8000                     updated 2 seconds ago
//	CPU 12.3% ▰▰▱▱▱▱ ▂▃▅   Memory 41.0% ▰▰▰▱▱▱ ▅▅▅   Disk 63.2% ▰▰▰▰▱▱ ▇▇▇
//	╭─ Accounts ───────────────────────────────────────────────── 3 ╮
//	│ NAME        ID                 ALTER  UPLINK  DOWNLINK  USED  │
//	╰───────────────────────────────────────────────────────────────╯
//	✓ Account created
//	q quit  r refresh  n new  d delete  x reset  enter qr  ? help
//
// # Keyboard
//
//	q, Ctrl+C   Quit
//	r           Refresh accounts now
//	n           New account form
//	d           Delete selected account (asks first)
//	x           Reset traffic of selected account (asks first)
//	Enter, c    Show the selected account's QR code
//	Esc         Close QR code, form or help
//	Up/k, Down/j, Home, End   Move the selection
//	?           Toggle help
//
// Clicking outside the QR code closes it.
package dashboard
