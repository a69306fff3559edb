// Package viz renders simulation tables in the terminal.
//
// Static output uses asciigraph line charts and a braille plan view of the
// coastline. The interactive [Browser] is a Bubble Tea program that steps
// through stored output one time step at a time.
//
// # Key Bindings
//
//	←/→ h/l - Previous/next time step
//	Home/End - First/last time step
//	Tab      - Cycle plotted column
//	P        - Toggle plan view
//	T        - Cycle color themes
//	?        - Show help overlay
//	Q        - Quit
package viz
