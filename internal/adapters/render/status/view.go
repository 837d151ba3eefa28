package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/application"
	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// StaleAfter flags the last sync as stale once it is older than this.
	StaleAfter time.Duration
}

// Render draws the session info of a keeper.
func Render(info application.Info, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderInfo(info, opts, s)
	})
}

// RenderTarget draws the public status of the game server.
func RenderTarget(target application.TargetStatus) (string, error) {
	return run(func(s styles) string {
		return renderTarget(target, s)
	})
}

func renderInfo(info application.Info, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("BoxToPlay Session Keeper"),
		s.header.Render(headerLine(info)),
	}

	switch info.State {
	case application.InfoNotLoaded:
		lines = append(lines, s.warning.Render("No document loaded yet."))
		if info.LoadError != "" {
			lines = append(lines, s.detail.Render("load error: "+info.LoadError))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	case application.InfoEmpty:
		lines = append(lines, s.empty.Render("Document loaded but it holds no accounts."))
		lines = append(lines, syncLine(info.LastSyncTime, opts, s))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, syncLine(info.LastSyncTime, opts, s))
	for _, account := range info.Accounts {
		lines = append(lines, s.section.Render(renderAccount(account, info, opts, s)))
	}
	if info.LastCycle != nil {
		lines = append(lines, s.section.Render(cycleLine(*info.LastCycle, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(info application.Info) string {
	parts := []string{
		fmt.Sprintf("state: %s", info.State),
		fmt.Sprintf("accounts: %d", len(info.Accounts)),
	}
	if info.DNS != "" {
		parts = append(parts, "dns: "+info.DNS)
	}
	if info.ServerID != "" {
		parts = append(parts, "server: "+info.ServerID)
	}
	return strings.Join(parts, " | ")
}

func renderAccount(account application.AccountInfo, info application.Info, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(account)),
	}

	server := account.ServerID
	if server == "" {
		server = "maintenance page"
	}
	parts = append(parts, s.detail.Render("target: "+server))

	if account.HasSession {
		parts = append(parts, s.detail.Render("session: "+account.Fingerprint))
	} else {
		parts = append(parts, s.warning.Render("session: missing"))
	}

	parts = append(parts, healthLine(account.Health, opts, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account application.AccountInfo) string {
	name := strings.TrimSpace(account.Email)
	if name == "" {
		name = fmt.Sprintf("account #%d", account.Index)
	}
	if account.Active {
		return fmt.Sprintf("Account: %s (active)", name)
	}
	return "Account: " + name
}

func healthLine(health *domain.AccountHealth, opts RenderOptions, s styles) string {
	if health == nil {
		return s.empty.Render("probe: not probed yet")
	}

	label := s.key.Render("probe:")
	when := s.meta.Render("(" + formatAge(health.LastProbeAt, opts.Now) + ")")

	switch {
	case health.Dead():
		return lipgloss.JoinHorizontal(lipgloss.Top,
			label, " ",
			s.warning.Render("dead, new cookie required"), " ",
			s.meta.Render("(since "+formatAge(health.DeadSince, opts.Now)+")"),
		)
	case health.LastOutcome == domain.OutcomeFailed:
		return lipgloss.JoinHorizontal(lipgloss.Top,
			label, " ",
			s.warning.Render(fmt.Sprintf("failed x%d", health.ConsecutiveFailures)), " ",
			when,
		)
	default:
		text := "alive"
		if !health.LastRotationAt.IsZero() {
			text += ", rotated " + formatAge(health.LastRotationAt, opts.Now)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.ok.Render(text), " ", when)
	}
}

func syncLine(lastSync time.Time, opts RenderOptions, s styles) string {
	label := s.key.Render("last sync:")
	if lastSync.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.empty.Render("never"))
	}

	ageStyle := lipgloss.NewStyle().Foreground(ageColor(lastSync, opts.Now, opts.StaleAfter))
	line := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", ageStyle.Render(formatAge(lastSync, opts.Now)))

	if !opts.Now.IsZero() && opts.StaleAfter > 0 && opts.Now.Sub(lastSync) > opts.StaleAfter {
		line += " " + s.warning.Render("[stale]")
	}
	return line
}

func cycleLine(cycle application.CycleReport, opts RenderOptions, s styles) string {
	if cycle.Skipped {
		return s.empty.Render("last cycle: skipped, no document")
	}

	text := fmt.Sprintf("last cycle: %d probed, %d rotated, %d dead, %d failed (%s)",
		len(cycle.Outcomes), cycle.Rotated, cycle.Dead, cycle.Failed, formatAge(cycle.FinishedAt, opts.Now))
	if cycle.PersistErr != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			s.detail.Render(text),
			s.warning.Render("persist failed: "+cycle.PersistErr.Error()),
		)
	}
	return s.detail.Render(text)
}

func renderTarget(target application.TargetStatus, s styles) string {
	lines := []string{
		s.title.Render("Server " + target.DNS),
	}

	status := target.Status
	if !status.Online {
		lines = append(lines, s.warning.Render("offline or unreachable"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	header := fmt.Sprintf("online | players: %d/%d", status.PlayersOnline, status.PlayersMax)
	if status.Version != "" {
		header += " | version: " + status.Version
	}
	lines = append(lines, s.ok.Render(header))

	if len(status.Players) == 0 {
		lines = append(lines, s.empty.Render("Nobody is on the server."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	for _, player := range status.Players {
		lines = append(lines, s.detail.Render("- "+player))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	if now.IsZero() {
		return at.UTC().Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	if elapsed < 0 {
		elapsed = 0
	}
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 48*time.Hour:
		return plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return plural(int(math.Floor(elapsed.Hours()/24)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright.
	baseColor := 240.0
	targetColor := 255.0

	interpolated := baseColor + (targetColor-baseColor)*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}

// ageColor is bright for a fresh sync and fades as it nears staleAfter.
func ageColor(at, now time.Time, staleAfter time.Duration) lipgloss.Color {
	if now.IsZero() || staleAfter <= 0 || at.After(now) {
		return lipgloss.Color("255")
	}

	inverted := staleAfter.Seconds() - now.Sub(at).Seconds()
	return interpolateColor(inverted, 0, staleAfter.Seconds())
}
