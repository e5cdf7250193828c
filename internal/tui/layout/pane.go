package layout

// SplitLayout holds calculated list and preview widths.
// PreviewWidth is zero when the preview is hidden.
type SplitLayout struct {
	ListWidth    int
	PreviewWidth int
}

// CalculateListHeight computes the content height for the item list.
// Returns at least MinHeight.
func CalculateListHeight(terminalHeight int, cfg ListConfig) int {
	height := terminalHeight - cfg.HeightReduction
	if height < cfg.MinHeight {
		return cfg.MinHeight
	}
	return height
}

// CalculateSplit divides the terminal width between list and preview.
// Pane borders and the gap between panes take 6 columns.
func CalculateSplit(terminalWidth int, list ListConfig, preview PreviewConfig) SplitLayout {
	const chrome = 6

	if terminalWidth < preview.MinTerminalWidth {
		width := terminalWidth - chrome/2
		if width < list.MinWidth {
			width = list.MinWidth
		}
		return SplitLayout{ListWidth: width}
	}

	previewWidth := terminalWidth * preview.WidthPercent / 100
	if previewWidth > preview.MaxWidth {
		previewWidth = preview.MaxWidth
	}

	listWidth := terminalWidth - previewWidth - chrome
	if listWidth < list.MinWidth {
		listWidth = list.MinWidth
	}

	return SplitLayout{
		ListWidth:    listWidth,
		PreviewWidth: previewWidth,
	}
}

// CalculateItemWidth computes the width available for row content.
func CalculateItemWidth(paneWidth int, cfg ListConfig) int {
	return paneWidth - cfg.ContentPadding
}

// CalculatePreviewImageHeight returns the cell rows available for the image
// inside a preview pane of the given height.
func CalculatePreviewImageHeight(paneHeight int, cfg PreviewConfig) int {
	height := paneHeight - cfg.DetailLines
	if height < 1 {
		return 1
	}
	return height
}

// CalculateViewportOffset calculates the scroll offset needed to keep the
// selected item visible within the viewport.
func CalculateViewportOffset(selected, total, viewportHeight int) int {
	if total <= viewportHeight {
		return 0
	}

	// Keep selection roughly centered, but clamp to valid range
	offset := selected - viewportHeight/2
	if offset < 0 {
		offset = 0
	}

	maxOffset := total - viewportHeight
	if offset > maxOffset {
		offset = maxOffset
	}

	return offset
}

// VisibleRange returns the [start, end) item indices shown in the viewport.
func VisibleRange(selected, total, viewportHeight int) (start, end int) {
	start = CalculateViewportOffset(selected, total, viewportHeight)
	end = start + viewportHeight
	if end > total {
		end = total
	}
	return start, end
}
