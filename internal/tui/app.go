package tui

import (
	"context"
	"slices"
	"sort"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bm/internal/model"
	"github.com/nikbrunner/bm/internal/thumbnail"
	"github.com/nikbrunner/bm/internal/tui/layout"
	"github.com/nikbrunner/bm/internal/updater"
)

// App is the main bubbletea model for the bookmark browser.
type App struct {
	store        *model.Store
	cache        *thumbnail.Cache
	updater      *updater.Updater
	ctx          context.Context
	keys         KeyMap
	styles       Styles
	layoutConfig layout.LayoutConfig

	// Filter state
	mode    Mode
	search  SearchState
	tags    TagFilter
	visible []model.Item      // store items matching the current filter
	known   map[string]string // item ID to URL in the last observed snapshot
	cursor  int               // selected index into visible

	thumbs  *thumbs
	watcher *storeWatcher

	openURL  func(string) error
	copyText func(string) error

	status    string
	statusErr bool

	// For gg command
	lastKeyWasG bool

	// Window dimensions
	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Store        *model.Store
	Cache        *thumbnail.Cache     // optional, thumbnails are disabled if nil
	Updater      *updater.Updater     // optional, refresh is disabled if nil
	Context      context.Context      // optional, used for refreshes
	Keys         *KeyMap              // optional, uses default if nil
	Styles       *Styles              // optional, uses default if nil
	LayoutConfig *layout.LayoutConfig // optional, uses default if nil
	OpenURL      func(string) error   // optional, opens the system browser if nil
	CopyText     func(string) error   // optional, writes the system clipboard if nil
}

// Messages

type storeChangedMsg struct {
	snapshot model.Snapshot
}

type refreshDoneMsg struct {
	err error
}

type statusMsg struct {
	text string
	err  bool
}

// NewApp creates a new App with the given parameters.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	layoutConfig := layout.DefaultConfig()
	if params.LayoutConfig != nil {
		layoutConfig = *params.LayoutConfig
	}

	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	openURL := params.OpenURL
	if openURL == nil {
		openURL = OpenURL
	}
	copyText := params.CopyText
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	store := params.Store
	if store == nil {
		store = model.NewStore()
	}

	app := App{
		store:        store,
		cache:        params.Cache,
		updater:      params.Updater,
		ctx:          ctx,
		keys:         keys,
		styles:       styles,
		layoutConfig: layoutConfig,
		mode:         ModeNormal,
		search:       NewSearchState(layoutConfig),
		tags:         TagFilter{Idx: -1},
		thumbs:       newThumbs(params.Cache),
		watcher:      watchStore(store),
		openURL:      openURL,
		copyText:     copyText,
		width:        80,
		height:       24,
	}

	snap := store.Snapshot()
	app.tags.SetTags(snap.Tags)
	app.known = urlsByID(snap.Items)
	app.refilter()
	return app
}

// Close unsubscribes from the store and cancels outstanding thumbnail
// subscriptions.
func (a App) Close() {
	a.watcher.cancel()
	a.thumbs.closeAll()
}

// WithDimensions returns a copy of the app sized to width x height.
func (a App) WithDimensions(width, height int) App {
	a.width = width
	a.height = height
	return a
}

// Cursor returns the current cursor position.
func (a App) Cursor() int {
	return a.cursor
}

// Mode returns the current interaction mode.
func (a App) Mode() Mode {
	return a.mode
}

// Visible returns the items matching the current filter.
func (a App) Visible() []model.Item {
	return a.visible
}

// Selected returns the item under the cursor.
func (a App) Selected() (model.Item, bool) {
	if a.cursor < 0 || a.cursor >= len(a.visible) {
		return model.Item{}, false
	}
	return a.visible[a.cursor], true
}

// Tag returns the active tag filter, or "" if none.
func (a App) Tag() string {
	return a.tags.Current()
}

// SearchQuery returns the current search text.
func (a App) SearchQuery() string {
	return a.search.Value()
}

// Status returns the status line text.
func (a App) Status() string {
	return a.status
}

// ThumbState returns the thumbnail state of the item with the given ID.
func (a App) ThumbState(id string) ThumbState {
	return a.thumbs.state(id)
}

// Subscribed returns the IDs of items with a live thumbnail subscription, sorted.
func (a App) Subscribed() []string {
	ids := make([]string, 0, len(a.thumbs.handles))
	for id := range a.thumbs.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// refilter recomputes visible items, keeping the selected item under the
// cursor when it is still visible.
func (a *App) refilter() {
	selectedID := ""
	if it, ok := a.Selected(); ok {
		selectedID = it.ID
	}

	q := model.Query{Tag: a.tags.Current(), Search: a.search.Value()}
	a.visible = slices.Collect(a.store.Query(q))

	a.cursor = 0
	if selectedID != "" {
		if i := slices.IndexFunc(a.visible, func(it model.Item) bool { return it.ID == selectedID }); i >= 0 {
			a.cursor = i
		}
	}
}

// listHeight is the number of rows in the list pane.
func (a App) listHeight() int {
	return layout.CalculateListHeight(a.height, a.layoutConfig.List)
}

// window returns the items currently shown in the list pane.
func (a App) window() []model.Item {
	start, end := layout.VisibleRange(a.cursor, len(a.visible), a.listHeight())
	return a.visible[start:end]
}

// syncThumbs matches thumbnail subscriptions to the visible window.
func (a App) syncThumbs() tea.Cmd {
	return tea.Batch(a.thumbs.sync(a.window())...)
}

// waitForChange blocks until the store publishes a new snapshot.
func (a App) waitForChange() tea.Cmd {
	ch := a.watcher.ch
	return func() tea.Msg {
		return storeChangedMsg{snapshot: <-ch}
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.waitForChange(), a.syncThumbs())
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, a.syncThumbs()

	case storeChangedMsg:
		a.applySnapshot(msg.snapshot)
		return a, tea.Batch(a.syncThumbs(), a.waitForChange())

	case thumbMsg:
		a.thumbs.deliver(msg)
		return a, nil

	case refreshDoneMsg:
		if msg.err != nil {
			a.setStatus("Refresh failed: "+msg.err.Error(), true)
		} else {
			a.setStatus("Refreshed", false)
		}
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.err)
		return a, nil

	case tea.KeyMsg:
		switch a.mode {
		case ModeHelp:
			return a.updateHelp(msg)
		case ModeSearch:
			return a.updateSearch(msg)
		default:
			return a.updateNormal(msg)
		}
	}

	return a, nil
}

func (a *App) applySnapshot(snap model.Snapshot) {
	next := urlsByID(snap.Items)
	var stale []string
	for id, url := range a.known {
		if nextURL, ok := next[id]; !ok || nextURL != url {
			stale = append(stale, id)
		}
	}
	a.thumbs.forget(stale)
	a.known = next

	a.tags.SetTags(snap.Tags)
	a.refilter()
}

func (a App) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Help), key.Matches(msg, a.keys.Quit), key.Matches(msg, a.keys.Clear):
		a.mode = ModeNormal
	}
	return a, nil
}

func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.search.Reset()
		a.mode = ModeNormal
		a.refilter()
		return a, a.syncThumbs()

	case tea.KeyEnter:
		a.search.Input.Blur()
		a.mode = ModeNormal
		return a, nil

	case tea.KeyCtrlC:
		return a, tea.Quit

	case tea.KeyDown, tea.KeyCtrlN:
		a.move(1)
		return a, a.syncThumbs()

	case tea.KeyUp, tea.KeyCtrlP:
		a.move(-1)
		return a, a.syncThumbs()
	}

	before := a.search.Value()
	var cmd tea.Cmd
	a.search.Input, cmd = a.search.Input.Update(msg)
	if a.search.Value() != before {
		a.refilter()
	}
	return a, tea.Batch(cmd, a.syncThumbs())
}

func (a App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			// This is the second g - go to top
			a.cursor = 0
			a.lastKeyWasG = false
			return a, a.syncThumbs()
		}
		// First g - wait for second
		a.lastKeyWasG = true
		return a, nil
	}

	// Reset g flag for any other key
	a.lastKeyWasG = false

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		a.move(1)

	case key.Matches(msg, a.keys.Up):
		a.move(-1)

	case key.Matches(msg, a.keys.PageDown):
		a.move(a.listHeight() / 2)

	case key.Matches(msg, a.keys.PageUp):
		a.move(-a.listHeight() / 2)

	case key.Matches(msg, a.keys.Bottom):
		if len(a.visible) > 0 {
			a.cursor = len(a.visible) - 1
		}

	case key.Matches(msg, a.keys.Search):
		a.mode = ModeSearch
		return a, a.search.Input.Focus()

	case key.Matches(msg, a.keys.NextTag):
		a.tags.Next()
		a.refilter()

	case key.Matches(msg, a.keys.PrevTag):
		a.tags.Prev()
		a.refilter()

	case key.Matches(msg, a.keys.Clear):
		a.search.Reset()
		a.tags.Idx = -1
		a.refilter()

	case key.Matches(msg, a.keys.Open):
		if it, ok := a.Selected(); ok {
			return a, a.openCmd(it)
		}
		return a, nil

	case key.Matches(msg, a.keys.Share):
		if it, ok := a.Selected(); ok {
			return a, a.shareCmd(it)
		}
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		return a.startRefresh()

	case key.Matches(msg, a.keys.Help):
		a.mode = ModeHelp
		return a, nil
	}

	return a, a.syncThumbs()
}

// move shifts the cursor by delta, clamped to the visible items.
func (a *App) move(delta int) {
	if len(a.visible) == 0 {
		a.cursor = 0
		return
	}
	a.cursor = min(max(a.cursor+delta, 0), len(a.visible)-1)
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.statusErr = isErr
}

func (a App) startRefresh() (tea.Model, tea.Cmd) {
	if a.updater == nil {
		a.setStatus("No update source configured", true)
		return a, nil
	}
	if !a.updater.Start(a.ctx) {
		a.setStatus("Refresh already running", false)
		return a, nil
	}

	a.setStatus("Refreshing...", false)
	a.thumbs.retryFailed()
	u := a.updater
	return a, tea.Batch(a.syncThumbs(), func() tea.Msg {
		u.Wait()
		return refreshDoneMsg{err: u.LastError()}
	})
}

func (a App) openCmd(it model.Item) tea.Cmd {
	open := a.openURL
	return func() tea.Msg {
		if err := open(it.URL); err != nil {
			return statusMsg{text: "Open failed: " + err.Error(), err: true}
		}
		return statusMsg{text: "Opened " + it.DisplayTitle()}
	}
}

func (a App) shareCmd(it model.Item) tea.Cmd {
	copyText := a.copyText
	return func() tea.Msg {
		if err := copyText(it.URL); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), err: true}
		}
		return statusMsg{text: "Copied URL: " + it.URL}
	}
}

func urlsByID(items []model.Item) map[string]string {
	urls := make(map[string]string, len(items))
	for _, it := range items {
		urls[it.ID] = it.URL
	}
	return urls
}

// View implements tea.Model.
func (a App) View() string {
	return a.renderView()
}
