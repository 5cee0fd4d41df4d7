// Package ui provides the terminal interface: a record list, a form and a
// confirmation screen over one sheetcrud.Session.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/speech"
)

// NewProgram returns a new Tea program.
func NewProgram(ctx context.Context, cfg Config, session *sheetcrud.Session, synth speech.Synthesizer, logger *log.Logger) *tea.Program {
	logger.Debug("starting tui", "variant", session.Variant().Name, "alt_screen", cfg.AltScreen)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(NewModel(ctx, cfg, session, synth, logger), opts...)
}

type (
	startedMsg struct{ err error }

	// actionDoneMsg reports a finished save-backed action
	actionDoneMsg struct {
		verb   string
		record *sheetcrud.Record
		err    error
	}

	spokenMsg struct {
		path string
		size int
		err  error
	}
)

// Model is the Bubble Tea model. Every blocking session call runs as a
// command; keys are ignored until it reports back.
type Model struct {
	ctx     context.Context
	cfg     Config
	session *sheetcrud.Session
	synth   speech.Synthesizer // nil disables speech
	logger  *log.Logger

	cursor int
	busy   bool

	fields []sheetcrud.Field
	inputs []textinput.Model
	focus  int

	status    string
	statusErr bool

	width, height int
}

// NewModel creates the model; Init loads the session.
func NewModel(ctx context.Context, cfg Config, session *sheetcrud.Session, synth speech.Synthesizer, logger *log.Logger) Model {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return Model{
		ctx:     ctx,
		cfg:     cfg,
		session: session,
		synth:   synth,
		logger:  logger,
		busy:    true,
	}
}

// Init starts loading the working set.
func (m Model) Init() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return startedMsg{err: session.Start(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case startedMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("loaded %d records", len(m.session.Records())))
		}
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.afterAction(msg)
		return m, nil

	case spokenMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("wrote %s (%s)", msg.path, humanize.Bytes(uint64(msg.size))))
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch m.session.State() {
		case sheetcrud.StateForm:
			return m.updateForm(msg)
		case sheetcrud.StateConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	var (
		readErr  *sheetcrud.ReadError
		writeErr *sheetcrud.WriteError
		synthErr *speech.SynthesisError
	)
	switch {
	case errors.As(err, &readErr):
		m.status = "could not load records: " + readErr.Err.Error()
	case errors.As(err, &writeErr):
		m.status = "not saved, press f to retry: " + writeErr.Err.Error()
	case errors.As(err, &synthErr):
		m.status = "speech failed: " + synthErr.Err.Error()
	default:
		m.status = err.Error()
	}
	m.statusErr = true
}

func (m *Model) afterAction(msg actionDoneMsg) {
	records := m.session.Records()
	if msg.record != nil {
		for i, r := range records {
			if r.ID == msg.record.ID {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor(len(records))

	if msg.err != nil {
		m.setError(msg.err)
		return
	}
	m.setStatus(msg.verb)
}

func (m *Model) clampCursor(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() *sheetcrud.Record {
	records := m.session.Records()
	if m.cursor < 0 || m.cursor >= len(records) {
		return nil
	}
	return records[m.cursor]
}

// run executes a session action off the update loop
func (m Model) run(verb string, fn func(ctx context.Context) (*sheetcrud.Record, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		record, err := fn(ctx)
		return actionDoneMsg{verb: verb, record: record, err: err}
	}
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if pending := m.session.PendingDelete(); pending != "" {
		switch msg.String() {
		case "y":
			return m.run("deleted", func(ctx context.Context) (*sheetcrud.Record, error) {
				return nil, m.session.ConfirmDelete(ctx)
			})
		case "n", "esc":
			_ = m.session.CancelDelete()
			m.setStatus("delete cancelled")
		}
		return m, nil
	}

	n := len(m.session.Records())
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}

	case "n":
		if err := m.session.New(); err != nil {
			m.setError(err)
			return m, nil
		}
		m.openForm()

	case "e", "enter":
		r := m.selected()
		if r == nil {
			return m, nil
		}
		if err := m.session.Edit(r.ID); err != nil {
			m.setError(err)
			return m, nil
		}
		m.openForm()

	case "d":
		r := m.selected()
		if r == nil {
			return m, nil
		}
		if err := m.session.RequestDelete(r.ID); err != nil {
			m.setError(err)
		}

	case "s":
		return m.speak()

	case "f":
		return m.run("saved", func(ctx context.Context) (*sheetcrud.Record, error) {
			return nil, m.session.Flush(ctx)
		})
	}
	return m, nil
}

func (m Model) speak() (tea.Model, tea.Cmd) {
	if m.synth == nil {
		m.setError(errors.New("speech is not enabled"))
		return m, nil
	}
	if m.session.Variant().Name != sheetcrud.SpeechVariant.Name {
		m.setError(errors.New("speech needs the speech variant"))
		return m, nil
	}
	r := m.selected()
	if r == nil {
		return m, nil
	}

	m.busy = true
	m.setStatus("synthesizing " + r.GetAsString("title", r.ID) + ellipsis)
	ctx, synth, dir := m.ctx, m.synth, m.cfg.OutputDir
	return m, func() tea.Msg {
		audio, err := synth.Synthesize(ctx, speech.RequestFromRecord(r))
		if err != nil {
			return spokenMsg{err: err}
		}
		path, err := speech.WriteFile(dir, r.GetAsString("title", r.ID), audio)
		if err != nil {
			return spokenMsg{err: err}
		}
		return spokenMsg{path: path, size: len(audio.Data)}
	}
}

// openForm builds one input per form field from the session draft
func (m *Model) openForm() {
	variant := m.session.Variant()
	values := variant.Inputs(m.session.Draft())

	m.fields = variant.FormFields()
	m.inputs = make([]textinput.Model, len(m.fields))
	for i, f := range m.fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		ti.Cursor.SetMode(cursor.CursorStatic)
		if f.Kind == sheetcrud.KindChoice {
			if choices := f.AllowedChoices(m.formDraft()); len(choices) > 0 {
				ti.Placeholder = choices[0]
			}
		}
		ti.SetValue(values[f.Name])
		m.inputs[i] = ti
	}
	m.focus = 0
	m.focusInput()
	m.setStatus("")
}

func (m *Model) focusInput() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m Model) formValues() map[string]string {
	values := make(map[string]string, len(m.inputs))
	for i, f := range m.fields {
		values[f.Name] = m.inputs[i].Value()
	}
	return values
}

// formDraft is the current input as a loose draft, for choice lookups
func (m Model) formDraft() sheetcrud.Draft {
	d := sheetcrud.Draft{}
	for k, v := range m.formValues() {
		d[k] = v
	}
	return d
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		m.openForm()
	}

	switch msg.String() {
	case "esc":
		_ = m.session.Cancel()
		m.setStatus("cancelled")
		return m, nil

	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.inputs)
		m.focusInput()
		return m, nil

	case "shift+tab", "up":
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
		m.focusInput()
		return m, nil

	case "enter":
		if err := m.session.SubmitInputs(m.formValues()); err != nil {
			m.setError(err)
			var v *sheetcrud.ValidationError
			if errors.As(err, &v) {
				for i, f := range m.fields {
					if f.Name == v.Field {
						m.focus = i
						m.focusInput()
					}
				}
			}
			return m, nil
		}
		m.setStatus("")
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		verb := "created"
		if m.session.Editing() != nil {
			verb = "updated"
		}
		return m.run(verb, m.session.Commit)

	case "b":
		if err := m.session.GoBack(); err != nil {
			m.setError(err)
			return m, nil
		}
		m.openForm()

	case "esc":
		_ = m.session.Cancel()
		m.setStatus("cancelled")
	}
	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	var b strings.Builder

	title := "sheetcrud · " + m.session.Variant().Name
	if m.session.Dirty() {
		title += " *"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	switch m.session.State() {
	case sheetcrud.StateForm:
		b.WriteString(m.formView())
	case sheetcrud.StateConfirm:
		b.WriteString(m.confirmView())
	default:
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle(m.status))
		} else {
			b.WriteString(okStyle(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(hintStyle(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	if m.busy {
		return "working" + ellipsis
	}
	switch m.session.State() {
	case sheetcrud.StateForm:
		return "tab/shift+tab: move • enter: confirm • esc: cancel"
	case sheetcrud.StateConfirm:
		return "enter/y: save • b: back • esc: cancel"
	}
	if m.session.PendingDelete() != "" {
		return "y: delete • n/esc: keep"
	}
	help := "↑/↓: move • n: new • e: edit • d: delete • f: save • q: quit"
	if m.synth != nil && m.session.Variant().Name == sheetcrud.SpeechVariant.Name {
		help = "↑/↓: move • n: new • e: edit • d: delete • s: speak • f: save • q: quit"
	}
	return help
}

func (m Model) listColumns() []string {
	var cols []string
	for _, f := range m.session.Variant().Fields {
		if f.Name == "created_at" {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// maxColumnWidth caps a list column in terminal cells
const maxColumnWidth = 24

// columnWidths measures each column in display cells, so wide characters
// count twice
func columnWidths(cols []string, records []*sheetcrud.Record) []int {
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = displayWidth(col)
		for _, r := range records {
			if w := displayWidth(strings.ReplaceAll(r.GetAsString(col, ""), "\n", " ")); w > widths[i] {
				widths[i] = w
			}
		}
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}

func (m Model) listView() string {
	records := m.session.Records()
	if len(records) == 0 {
		return hintStyle("no records yet, press n to add one") + "\n"
	}

	cols := m.listColumns()
	widths := columnWidths(cols, records)

	row := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			c = strings.ReplaceAll(c, "\n", " ")
			parts[i] = pad(truncate(c, widths[i]), widths[i])
		}
		return strings.Join(parts, "  ")
	}

	var b strings.Builder
	b.WriteString("  " + headerStyle.Render(row(cols)) + "\n")

	start, end := visibleRange(len(records), m.cursor, m.height-8)
	pending := m.session.PendingDelete()
	for i := start; i < end; i++ {
		r := records[i]
		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = r.GetAsString(col, "")
		}
		line := row(cells)
		switch {
		case r.ID == pending:
			b.WriteString("  " + bannerStyle(line) + "\n")
		case i == m.cursor:
			b.WriteString("> " + selectedStyle.Render(line) + "\n")
		default:
			b.WriteString("  " + line + "\n")
		}
	}

	if pending != "" {
		if r, err := m.session.Record(pending); err == nil {
			label := r.GetAsString(cols[0], r.ID)
			b.WriteString("\n" + bannerStyle(fmt.Sprintf("delete %q? y/n", label)) + "\n")
		}
	}
	return b.String()
}

// visibleRange windows the list around the cursor
func visibleRange(n, cursor, rows int) (int, int) {
	if rows <= 0 || n <= rows {
		return 0, n
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m Model) formView() string {
	var b strings.Builder
	if m.session.Editing() != nil {
		b.WriteString(headerStyle.Render("edit record") + "\n\n")
	} else {
		b.WriteString(headerStyle.Render("new record") + "\n\n")
	}

	draft := m.formDraft()
	for i, f := range m.fields {
		label := labelStyle.Render(f.Label)
		if i == m.focus {
			label = focusedLabelStyle.Render(f.Label)
		}
		b.WriteString(label + " " + m.inputs[i].View())
		if f.Kind == sheetcrud.KindChoice {
			b.WriteString("  " + hintStyle(strings.Join(f.AllowedChoices(draft), " | ")))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) confirmView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("save this record?") + "\n\n")

	data := &sheetcrud.Record{Values: m.session.ConfirmData()}
	for _, f := range m.session.Variant().FormFields() {
		b.WriteString(labelStyle.Render(f.Label) + " " + data.GetAsString(f.Name, "") + "\n")
	}
	return b.String()
}
