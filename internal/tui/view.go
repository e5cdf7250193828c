package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/tui/layout"
)

// renderView creates the complete browser view: header, list, preview, status and hints.
func (a App) renderView() string {
	if a.mode == ModeHelp {
		return a.renderHelpOverlay()
	}

	listHeight := a.listHeight()
	split := layout.CalculateSplit(a.width, a.layoutConfig.List, a.layoutConfig.Preview)

	columns := a.renderListPane(split.ListWidth, listHeight)
	if split.PreviewWidth > 0 {
		columns = lipgloss.JoinHorizontal(
			lipgloss.Top,
			columns,
			a.renderPreviewPane(split.PreviewWidth, listHeight),
		)
	}

	content := a.styles.App.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			a.renderHeader(),
			a.renderFilterLine(),
			columns,
			a.renderStatusLine(),
			a.renderHelpBar(),
		),
	)

	// Use Place to ensure exact terminal dimensions and prevent overflow
	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
}

// renderHeader renders the title, match count and refresh age.
func (a App) renderHeader() string {
	header := a.styles.Title.Render("bm") + " " +
		a.styles.Status.Render(fmt.Sprintf("%d/%d", len(a.visible), len(a.known)))

	if a.updater != nil {
		switch {
		case a.updater.Running():
			header += a.styles.Status.Render("  refreshing...")
		case !a.updater.LastRefresh().IsZero():
			header += a.styles.Status.Render("  updated " + formatTimeAgo(a.updater.LastRefresh()))
		}
	}
	return header
}

// renderFilterLine renders the search input or query followed by the tag bar.
func (a App) renderFilterLine() string {
	var search string
	switch {
	case a.mode == ModeSearch:
		search = a.search.Input.View()
	case a.search.Value() != "":
		search = a.styles.TagActive.Render("/" + a.search.Value())
	default:
		search = a.styles.Empty.Render("/ to search")
	}

	line := search + "  " + a.renderTagBar()
	return layout.TruncateANSIAware(line, max(a.width-4, 1), a.layoutConfig.Text)
}

// renderTagBar renders "all" followed by each tag, highlighting the active one.
func (a App) renderTagBar() string {
	const maxChip = 18

	parts := make([]string, 0, len(a.tags.Tags)+1)
	if a.tags.Current() == "" {
		parts = append(parts, a.styles.TagActive.Render("[all]"))
	} else {
		parts = append(parts, a.styles.Tag.Render("all"))
	}
	for i, tag := range a.tags.Tags {
		chip, _ := layout.TruncateWithPrefixSuffix(tag, maxChip, "#", "", a.layoutConfig.Text)
		if i == a.tags.Idx {
			parts = append(parts, a.styles.TagActive.Render("["+chip+"]"))
		} else {
			parts = append(parts, a.styles.Tag.Render(chip))
		}
	}
	return strings.Join(parts, " ")
}

// renderListPane renders the visible window of filtered items.
func (a App) renderListPane(width, height int) string {
	var content strings.Builder
	itemWidth := layout.CalculateItemWidth(width, a.layoutConfig.List)

	if len(a.visible) == 0 {
		msg := "(no bookmarks)"
		if a.search.Value() != "" || a.tags.Current() != "" {
			msg = "(no matches)"
		}
		content.WriteString(a.styles.Empty.Render(msg))
	}

	start, end := layout.VisibleRange(a.cursor, len(a.visible), height)
	for i := start; i < end; i++ {
		content.WriteString(a.renderRow(a.visible[i], i == a.cursor, itemWidth))
		if i < end-1 {
			content.WriteString("\n")
		}
	}

	style := a.styles.Pane
	if a.mode == ModeNormal {
		style = a.styles.PaneActive
	}
	return style.
		Width(width).
		Height(height).
		Render(content.String())
}

// thumbGlyph returns the single-cell marker for a row's thumbnail state.
func thumbGlyph(s ThumbState) string {
	switch s {
	case ThumbReady:
		return "■"
	case ThumbLoading:
		return "·"
	case ThumbFailed:
		return "×"
	default:
		return " "
	}
}

// renderRow renders one item as "glyph title  host  #tags".
func (a App) renderRow(it model.Item, isCursor bool, maxWidth int) string {
	glyph := thumbGlyph(a.thumbs.state(it.ID))
	title := it.DisplayTitle()
	host := hostOf(it.URL)
	tags := formatTags(it.Tags)

	if isCursor {
		line := glyph + " " + title
		if host != "" {
			line += "  " + host
		}
		if tags != "" {
			line += "  " + tags
		}
		line, _ = layout.TruncateText(line, maxWidth, a.layoutConfig.Text)
		return a.styles.ItemSelected.Width(maxWidth).Render(line)
	}

	line := a.styles.Placeholder.Render(glyph) + " " + title
	if host != "" {
		line += "  " + a.styles.URL.Render(host)
	}
	if tags != "" {
		line += "  " + a.styles.Tag.Render(tags)
	}
	return a.styles.Item.Render(layout.TruncateANSIAware(line, maxWidth, a.layoutConfig.Text))
}

// renderPreviewPane renders the selected item's thumbnail and details.
func (a App) renderPreviewPane(width, height int) string {
	var content strings.Builder
	innerWidth := layout.CalculateItemWidth(width, a.layoutConfig.List)

	it, ok := a.Selected()
	if !ok {
		return a.styles.Pane.
			Width(width).
			Height(height).
			Render(a.styles.Empty.Render("(nothing selected)"))
	}

	imgHeight := layout.CalculatePreviewImageHeight(height, a.layoutConfig.Preview)
	switch a.thumbs.state(it.ID) {
	case ThumbReady:
		content.WriteString(renderHalfBlocks(a.thumbs.image(it.ID), innerWidth, imgHeight))
	case ThumbLoading:
		content.WriteString(placeholder("loading...", innerWidth, imgHeight, a.styles.Placeholder))
	case ThumbFailed:
		content.WriteString(placeholder("no preview", innerWidth, imgHeight, a.styles.Placeholder))
	default:
		content.WriteString(placeholder("", innerWidth, imgHeight, a.styles.Placeholder))
	}
	content.WriteString("\n")

	title, _ := layout.TruncateText(it.DisplayTitle(), innerWidth, a.layoutConfig.Text)
	content.WriteString(a.styles.Title.Render(title) + "\n")

	u, _ := layout.TruncateText(it.URL, innerWidth, a.layoutConfig.Text)
	content.WriteString(a.styles.URL.Render(u) + "\n")

	if tags := formatTags(it.Tags); tags != "" {
		tags, _ = layout.TruncateText(tags, innerWidth, a.layoutConfig.Text)
		content.WriteString(a.styles.Tag.Render(tags) + "\n")
	}

	if !it.CreatedAt.IsZero() {
		content.WriteString(a.styles.Date.Render(
			fmt.Sprintf("Created: %s", it.CreatedAt.Format("2006-01-02")),
		))
	}

	return a.styles.Pane.
		Width(width).
		Height(height).
		Render(strings.TrimRight(content.String(), "\n"))
}

// renderStatusLine renders the last status message.
func (a App) renderStatusLine() string {
	if a.status == "" {
		return ""
	}
	style := a.styles.Status
	if a.statusErr {
		style = a.styles.Error
	}
	return style.Render(layout.TruncateANSIAware(a.status, max(a.width-4, 1), a.layoutConfig.Text))
}

// renderHelpBar renders contextual key hints.
func (a App) renderHelpBar() string {
	return layout.TruncateANSIAware(a.renderHints(a.getContextualHints()), max(a.width-4, 1), a.layoutConfig.Text)
}

// renderHelpOverlay renders all key bindings in a centered modal.
func (a App) renderHelpOverlay() string {
	cfg := a.layoutConfig.Modal
	width := layout.CalculateModalWidth(a.width, cfg.DefaultWidthPercent, cfg)

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("keys") + "\n\n")
	for _, binding := range a.keys.HelpBindings() {
		h := binding.Help()
		b.WriteString(lipgloss.NewStyle().Width(cfg.HelpLeftColumnWidth).Render(h.Key))
		b.WriteString(h.Desc + "\n")
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render("[?/esc] close"))

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		a.styles.Modal.Width(width).Render(b.String()),
	)
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "#" + strings.Join(tags, " #")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	if d < time.Minute {
		return "just now"
	} else if d < time.Hour {
		m := int(d.Minutes())
		if m == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", m)
	} else if d < 24*time.Hour {
		h := int(d.Hours())
		if h == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", h)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1d ago"
	}
	return fmt.Sprintf("%dd ago", days)
}
