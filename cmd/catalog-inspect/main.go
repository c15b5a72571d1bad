// catalog-inspect — TUI для проверки синхронизированных картинок.
//
// Показывает объекты под префиксом картинок и сверяет их с индексом
// из кэш-бакета: какие SKU уже лежат в хранилище, каких не хватает.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/ilkoid/poncho-catalog/pkg/catalog"
	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/ilkoid/poncho-catalog/pkg/s3storage"
	"github.com/ilkoid/poncho-catalog/pkg/utils"
)

// --- Стили ---
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	itemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const fetchTimeout = 30 * time.Second

// inspectStore — чтение хранилища, нужное инспектору.
type inspectStore interface {
	ListFiles(ctx context.Context, bucket, prefix string) ([]s3storage.StoredObject, error)
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
}

type target struct {
	imageBucket string
	imagePrefix string
	cacheBucket string
	indexKey    string
}

// --- Сообщения ---
type errMsg error

type loadedMsg struct {
	objects []s3storage.StoredObject
	index   catalog.ImageIndex // nil, если индекс не удалось прочитать
}

// --- Модель ---
type model struct {
	store    inspectStore
	target   target
	spinner  spinner.Model
	viewport viewport.Model

	lines   []string
	loading bool
	err     error
	ready   bool
}

func initialModel(store inspectStore, t target) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = itemStyle

	return model{
		store:   store,
		target:  t,
		spinner: s,
		loading: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchContents(m.store, m.target))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, fetchContents(m.store, m.target))
			}
		}

	case errMsg:
		m.err = msg
		m.loading = false
		return m, nil

	case loadedMsg:
		m.loading = false
		m.lines = buildReport(msg.objects, msg.index, m.target.imagePrefix)
		m.viewport.SetContent(wrapLines(m.lines, m.viewport.Width))
		return m, nil

	case tea.WindowSizeMsg:
		headerHeight := 2
		verticalMarginHeight := 2

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - verticalMarginHeight
		}
		// Перенос строк зависит от ширины
		m.viewport.SetContent(wrapLines(m.lines, m.viewport.Width))
	}

	if m.loading {
		m.spinner, cmd = m.spinner.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n❌ Error: %v\n\nPress 'q' to quit.", m.err)
	}

	header := titleStyle.Render(fmt.Sprintf("📦 Catalog images: %s/%s", m.target.imageBucket, m.target.imagePrefix))

	if m.loading {
		return fmt.Sprintf("\n %s Fetching objects and image index...\n\n", m.spinner.View())
	}

	return fmt.Sprintf("%s\n%s\n\n(q quit, r reload, arrows scroll)", header, m.viewport.View())
}

// --- Команды ---

func fetchContents(store inspectStore, t target) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		objects, err := store.ListFiles(ctx, t.imageBucket, t.imagePrefix)
		if err != nil {
			return errMsg(err)
		}

		var index catalog.ImageIndex
		data, err := store.DownloadFile(ctx, t.cacheBucket, t.indexKey)
		if err != nil {
			utils.Warn("Image index unavailable, showing objects only", "key", t.indexKey, "error", err)
		} else if index, err = catalog.ParseImageIndex(data); err != nil {
			utils.Warn("Image index is not valid JSON", "key", t.indexKey, "error", err)
			index = nil
		}

		return loadedMsg{objects: objects, index: index}
	}
}

// buildReport — строки для вьюпорта: объекты бакета и SKU индекса без картинки.
func buildReport(objects []s3storage.StoredObject, index catalog.ImageIndex, prefix string) []string {
	// Несколько SKU могут очиститься в один ключ
	owners := make(map[string][]string, len(index))
	var expected []string
	for sku, entry := range index {
		if entry.ImageURL == "" {
			continue
		}
		filename := entry.ImageFilename
		if filename == "" {
			filename = sku + ".jpg"
		}
		key := utils.StorageKey(prefix, filename)
		owners[key] = append(owners[key], sku)
		expected = append(expected, sku)
	}

	present := make(map[string]struct{}, len(objects))
	var total int64
	for _, obj := range objects {
		present[obj.Key] = struct{}{}
		total += obj.Size
	}

	var missing []string
	for key, skus := range owners {
		if _, ok := present[key]; !ok {
			missing = append(missing, skus...)
		}
	}
	sort.Strings(missing)

	lines := []string{
		fmt.Sprintf("Objects: %d (%.2f MB)", len(objects), float64(total)/(1024*1024)),
	}
	if index != nil {
		lines = append(lines, fmt.Sprintf("Indexed SKUs with image: %d, synced: %d, missing: %d",
			len(expected), len(expected)-len(missing), len(missing)))
	} else {
		lines = append(lines, "Image index: unavailable")
	}
	lines = append(lines, "")

	if len(objects) == 0 {
		lines = append(lines, "Prefix is empty.")
	}
	for _, obj := range objects {
		line := fmt.Sprintf("%s  %-10s  %s", itemStyle.Render("•"), fmt.Sprintf("%.2f KB", float64(obj.Size)/1024), obj.Key)
		if skus, ok := owners[obj.Key]; ok {
			sorted := append([]string(nil), skus...)
			sort.Strings(sorted)
			line += "  [" + strings.Join(sorted, ", ") + "]"
		}
		lines = append(lines, line)
	}

	if len(missing) > 0 {
		lines = append(lines, "", "Missing in bucket:")
		for _, sku := range missing {
			lines = append(lines, missingStyle.Render("✗")+"  "+sku)
		}
	}
	return lines
}

// wrapLines переносит длинные ключи по ширине вьюпорта.
func wrapLines(lines []string, width int) string {
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		wrapped = append(wrapped, wrap.String(line, width))
	}
	return strings.Join(wrapped, "\n")
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	prefix := flag.String("prefix", "", "image prefix (default: storage.image_prefix)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireS3(); err != nil {
		fmt.Fprintf(os.Stderr, "Config Error: %v\n", err)
		os.Exit(1)
	}
	if err := utils.InitLogger(cfg.App.LogPrefix + "-inspect"); err != nil {
		fmt.Fprintf(os.Stderr, "Logger Error: %v\n", err)
		os.Exit(1)
	}

	store, err := s3storage.New(cfg.S3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "S3 Init Error: %v\n", err)
		os.Exit(1)
	}

	t := target{
		imageBucket: cfg.Storage.ImageBucket,
		imagePrefix: cfg.Storage.ImagePrefix,
		cacheBucket: cfg.Storage.CacheBucket,
		indexKey:    cfg.Storage.IndexKey,
	}
	if *prefix != "" {
		t.imagePrefix = *prefix
	}

	p := tea.NewProgram(initialModel(store, t), tea.WithAltScreen())
	_, runErr := p.Run()
	utils.Close()
	if runErr != nil {
		fmt.Printf("Alas, there's been an error: %v", runErr)
		os.Exit(1)
	}
}
