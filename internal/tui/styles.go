package tui

import (
	"github.com/charmbracelet/lipgloss"

	"multisource/internal/camera"
)

var (
	// 色
	colorReady     = lipgloss.Color("2")  // green
	colorResolving = lipgloss.Color("3")  // yellow
	colorInvalid   = lipgloss.Color("1")  // red
	colorIdle      = lipgloss.Color("8")  // dim gray
	colorHeader    = lipgloss.Color("12") // bright blue
	colorMuted     = lipgloss.Color("8")  // dim
	colorCursor    = lipgloss.Color("6")  // cyan

	// スタイル
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeader)

	subheaderStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorCursor).
			Bold(true)

	columnHeaderStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Underline(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	notificationBarStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Italic(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorInvalid).
			Bold(true)
)

// statusStyle はフィードの状態に対応するスタイルを返す
func statusStyle(status camera.Status) lipgloss.Style {
	switch status {
	case camera.StatusReady:
		return lipgloss.NewStyle().Foreground(colorReady)
	case camera.StatusResolving:
		return lipgloss.NewStyle().Foreground(colorResolving)
	case camera.StatusInvalid:
		return lipgloss.NewStyle().Foreground(colorInvalid).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorIdle)
	}
}

// statusLabel は状態の表示文字列を返す
func statusLabel(info camera.FeedInfo) string {
	switch {
	case info.Status == camera.StatusInvalid:
		return "INVALID !"
	case info.Status == camera.StatusReady && info.PoolSize == 0:
		return "EMPTY"
	case info.Status == camera.StatusResolving:
		return "LOADING"
	case info.Status == camera.StatusReady:
		return "READY"
	default:
		return "WAITING"
	}
}
