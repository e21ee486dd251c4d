package services

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"mist-map-backup/models"
)

const reportWidth = 55

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.DoubleBorder()).
			Width(reportWidth).
			Align(lipgloss.Center)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// PrintBackupReport formats and prints the backup report to terminal
func PrintBackupReport(report *models.BackupReport) {
	fmt.Fprint(os.Stdout, FormatBackupReport(report))
}

// FormatBackupReport renders the report as terminal text
func FormatBackupReport(report *models.BackupReport) string {
	var b strings.Builder
	thin := strings.Repeat("─", reportWidth)

	section := func(title string) {
		fmt.Fprintf(&b, "\n %s\n%s\n", sectionStyle.Render(title), thin)
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("MIST MAP BACKUP REPORT"))
	b.WriteString("\n")

	section("OVERVIEW")
	fmt.Fprintf(&b, "  Site                    : %s\n", report.SiteName)
	if report.SiteID != "" {
		fmt.Fprintf(&b, "  Site ID                 : %s\n", report.SiteID)
	}
	fmt.Fprintf(&b, "  Run ID                  : %s\n", report.RunID)
	if report.SiteDir != "" {
		fmt.Fprintf(&b, "  Output Directory        : %s\n", report.SiteDir)
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "  Duration                : %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	section("MAPS")
	fmt.Fprintf(&b, "  Maps Found              : %d\n", report.MapsFound)
	fmt.Fprintf(&b, "  Maps Downloaded         : %d\n", report.MapsDownloaded)
	fmt.Fprintf(&b, "  Maps Already Present    : %d\n", report.MapsSkipped)
	fmt.Fprintf(&b, "  Maps Annotated          : %d\n", len(report.Annotations))

	section("ACCESS POINTS")
	fmt.Fprintf(&b, "  Placed APs              : %d\n", report.APsPlaced)
	fmt.Fprintf(&b, "  Not On A Map            : %d\n", len(report.UnplacedAPs))
	if len(report.UnmatchedAPs) > 0 {
		fmt.Fprintf(&b, "  On An Unknown Map       : %d\n", len(report.UnmatchedAPs))
	}
	if report.Unpositioned > 0 {
		fmt.Fprintf(&b, "  Missing Position        : %d\n", report.Unpositioned)
	}
	fmt.Fprintf(&b, "  AP Images Downloaded    : %d\n", report.APImagesDownloaded)
	fmt.Fprintf(&b, "  AP Images Present       : %d\n", report.APImagesSkipped)
	fmt.Fprintf(&b, "  Failed Downloads        : %d\n", report.FailedDownloads)
	fmt.Fprintf(&b, "  Data Downloaded         : %s\n", humanize.Bytes(uint64(report.BytesDownloaded)))

	if len(report.ModelCounts) > 0 {
		section("DEVICES PER MODEL")
		for _, kc := range sortedCounts(report.ModelCounts) {
			bar := strings.Repeat("▓", min(kc.count, 20))
			fmt.Fprintf(&b, "  %-25s %3d  %s\n", truncate(kc.key, 24)+":", kc.count, bar)
		}
	}

	if len(report.APsByMap) > 0 {
		section("APS PER MAP")
		for _, kc := range sortedCounts(report.APsByMap) {
			fmt.Fprintf(&b, "  %-35s %3d\n", truncate(kc.key, 34)+":", kc.count)
		}
	}

	if len(report.Annotations) > 0 {
		section("ANNOTATED MAPS")
		for i, a := range report.Annotations {
			note := ""
			if a.Converted {
				note = " (converted)"
			}
			fmt.Fprintf(&b, "  %d. %s%s\n", i+1, truncate(a.OutputPath, reportWidth-8), note)
		}
	}

	if report.InventoryPath != "" {
		section("INVENTORY")
		fmt.Fprintf(&b, "  %s\n", report.InventoryPath)
	}

	if report.RateLimited {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(center("API RATE LIMIT REACHED, RESULTS ARE PARTIAL", reportWidth)))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s\n\n", strings.Repeat("═", reportWidth))
	return b.String()
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
