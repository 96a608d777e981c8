// Package panel implements the AlarmPanelService gRPC API on top of a domain panel.
package panel
