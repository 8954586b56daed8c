package cmd

import (
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"bcfreq/internal/bcfreq/styles"
	"bcfreq/internal/freq"
	"bcfreq/internal/image"
	"bcfreq/internal/ui/colorize"
)

type viewMode int

const (
	viewReport viewMode = iota
	viewListing
	viewSymbols
)

type symbolItem struct {
	offset uint32
	name   string
}

func (i symbolItem) Title() string       { return fmt.Sprintf("%08x  %s", i.offset, i.name) }
func (i symbolItem) Description() string { return "" }
func (i symbolItem) FilterValue() string { return fmt.Sprintf("%x %s", i.offset, i.name) }

// Custom item delegate for symbols list
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}

	indicator := " "
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		offStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}
	fmt.Fprintf(w, " %s  %s  %s", indicator, offStyle.Render(fmt.Sprintf("%08x", i.offset)), i.name)
}

type model struct {
	report      viewport.Model
	listing     viewport.Model
	symbolsList list.Model
	spinner     spinner.Model
	mode        viewMode

	filepath string
	img      *image.Image
	freq     *freq.Report
	digest   string

	lines          []string
	lineIndex      map[int]int
	listingErr     error
	loadingListing bool
	symbolCount    int
	symbolsErr     error

	width  int
	height int
}

// Message types
type digestCalculatedMsg struct {
	digest string
}

type listingMsg struct {
	lines []string
	index map[int]int
	err   error
}

type symbolsMsg struct {
	items []list.Item
	err   error
}

// Commands
func calculateDigestCmd(path string) tea.Cmd {
	return func() tea.Msg {
		digest, err := fileDigest(path)
		if err != nil {
			return digestCalculatedMsg{digest: fmt.Sprintf("error: %v", err)}
		}
		return digestCalculatedMsg{digest: digest}
	}
}

func buildListingCmd(img *image.Image) tea.Cmd {
	return func() tea.Msg {
		lines, index, err := listing(img)
		return listingMsg{lines: lines, index: index, err: err}
	}
}

func readSymbolsCmd(img *image.Image) tea.Cmd {
	return func() tea.Msg {
		syms, err := sortedSymbols(img)
		if err != nil {
			return symbolsMsg{err: err}
		}
		items := make([]list.Item, 0, len(syms))
		for _, sym := range syms {
			items = append(items, symbolItem{offset: sym.Offset, name: displayName(sym.Name)})
		}
		return symbolsMsg{items: items}
	}
}

func newModel(path string, img *image.Image, report *freq.Report) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	lvp := viewport.New()
	lvp.SetWidth(80)
	lvp.SetHeight(24)

	symbolsList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	symbolsList.SetShowStatusBar(false)
	symbolsList.SetFilteringEnabled(true)
	symbolsList.Title = "Symbols"
	symbolsList.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	m := model{
		report:         vp,
		listing:        lvp,
		symbolsList:    symbolsList,
		spinner:        s,
		mode:           viewReport,
		filepath:       path,
		img:            img,
		freq:           report,
		loadingListing: true,
		width:          80,
		height:         24,
	}
	m.updateReport()
	m.updateListing()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		calculateDigestCmd(m.filepath),
		buildListingCmd(m.img),
		readSymbolsCmd(m.img),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case digestCalculatedMsg:
		m.digest = msg.digest
		m.updateReport()
		return m, nil

	case listingMsg:
		m.lines, m.lineIndex, m.listingErr = msg.lines, msg.index, msg.err
		m.loadingListing = false
		m.updateListing()
		return m, nil

	case symbolsMsg:
		m.symbolsErr = msg.err
		m.symbolsList.SetItems(msg.items)
		m.symbolCount = len(msg.items)
		m.symbolsList.Title = fmt.Sprintf("Symbols (%d total)", m.symbolCount)
		if m.symbolsErr != nil {
			m.symbolsList.Title = fmt.Sprintf("Symbols: %v", m.symbolsErr)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loadingListing {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateListing()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.report.SetWidth(msg.Width)
			m.report.SetHeight(msg.Height - 2)
			m.listing.SetWidth(msg.Width)
			m.listing.SetHeight(msg.Height - 2)
			m.symbolsList.SetWidth(msg.Width)
			m.symbolsList.SetHeight(msg.Height - 2)
			m.updateReport()
		}

	case tea.KeyMsg:
		// While the symbols list is filtering it gets every key but quit.
		filtering := m.mode == viewSymbols && m.symbolsList.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !filtering {
				return m, tea.Quit
			}
		case "r":
			if !filtering {
				m.mode = viewReport
				return m, nil
			}
		case "l":
			if !filtering {
				m.mode = viewListing
				return m, nil
			}
		case "s":
			if !filtering && m.symbolCount > 0 {
				m.mode = viewSymbols
				return m, nil
			}
		case "enter":
			if m.mode == viewSymbols && !filtering {
				if item, ok := m.symbolsList.SelectedItem().(symbolItem); ok {
					m.jumpTo(int(item.offset))
				}
				return m, nil
			}
		case "tab":
			if !filtering {
				m.mode = m.nextMode(1)
				return m, nil
			}
		case "shift+tab":
			if !filtering {
				m.mode = m.nextMode(-1)
				return m, nil
			}
		}
	}

	switch m.mode {
	case viewSymbols:
		m.symbolsList, cmd = m.symbolsList.Update(msg)
	case viewListing:
		m.listing, cmd = m.listing.Update(msg)
	default:
		m.report, cmd = m.report.Update(msg)
	}
	return m, cmd
}

// nextMode cycles through the views, skipping symbols when there are none.
func (m model) nextMode(step int) viewMode {
	const n = 3
	mode := m.mode
	for {
		mode = viewMode((int(mode) + step + n) % n)
		if mode != viewSymbols || m.symbolCount > 0 {
			return mode
		}
	}
}

// jumpTo shows the listing scrolled to the instruction at off.
func (m *model) jumpTo(off int) {
	m.mode = viewListing
	if line, ok := m.lineIndex[off]; ok {
		m.listing.SetYOffset(line)
	}
}

func (m model) View() string {
	var content string
	var menu string
	switch m.mode {
	case viewSymbols:
		content = m.symbolsList.View()
		menu = " Enter: show in listing • R: report • L: listing • Tab: cycle • Q: quit "
	case viewListing:
		content = m.listing.View()
		menu = " R: report • S: symbols • Tab: cycle • Q: quit "
	default:
		content = m.report.View()
		menu = " L: listing • S: symbols • Tab: cycle • Q: quit "
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

func (m *model) updateReport() {
	relPath := m.filepath
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := pathpkg.Rel(cwd, m.filepath); err == nil {
			relPath = rel
		}
	}

	var header []string
	header = append(header, "; "+relPath)
	if m.digest != "" {
		header = append(header, "; "+m.digest)
	}
	header = append(header,
		fmt.Sprintf("; string pool %d bytes, globals %d, public symbols %d, code %d bytes",
			m.img.StringPoolSize, m.img.GlobalAreaSize, m.img.PublicSymbolCount, m.img.CodeSize()))

	markdown := fmt.Sprintf("# bcfreq\n\n```\n%s\n```\n\n%s", strings.Join(header, "\n"), m.freq.Markdown())

	width := m.width
	if width == 0 {
		width = 80
	}
	rendered, err := styles.Render(markdown, width-2)
	if err != nil {
		rendered = markdown
	}
	m.report.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func (m *model) updateListing() {
	switch {
	case m.loadingListing:
		m.listing.SetContent(m.spinner.View() + " Decoding...")
	case m.listingErr != nil:
		m.listing.SetContent(fmt.Sprintf("error: %v", m.listingErr))
	default:
		lines := make([]string, len(m.lines))
		for i, line := range m.lines {
			lines[i] = colorize.Line(line)
		}
		m.listing.SetContent(strings.Join(lines, "\n"))
	}
}
