package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/openfroyo/vtree/pkg/config"
	"github.com/openfroyo/vtree/pkg/stores"
	"github.com/openfroyo/vtree/pkg/vtree"
)

// printer renders reports and history for humans or as JSON lines.
type printer struct {
	w    io.Writer
	json bool

	added   func(a ...interface{}) string
	removed func(a ...interface{}) string
	changed func(a ...interface{}) string
	moved   func(a ...interface{}) string
	faint   func(a ...interface{}) string
	failed  func(a ...interface{}) string
}

func newPrinter(w io.Writer, cfg config.OutputConfig) *printer {
	enabled := colorEnabled(w, cfg.Color)
	paint := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &printer{
		w:       w,
		json:    cfg.Format == "json",
		added:   paint(color.FgGreen),
		removed: paint(color.FgRed),
		changed: paint(color.FgYellow),
		moved:   paint(color.FgCyan),
		faint:   paint(color.Faint),
		failed:  paint(color.FgRed, color.Bold),
	}
}

func colorEnabled(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// report prints one cycle. cycleErr is the error the cycle ended with.
func (p *printer) report(r *vtree.Report, cycleErr error) error {
	if p.json {
		out := struct {
			*vtree.Report
			Error string `json:"error,omitempty"`
			Code  string `json:"code,omitempty"`
		}{Report: r}
		if cycleErr != nil {
			out.Error = cycleErr.Error()
			out.Code = vtree.CodeOf(cycleErr)
		}
		return p.encode(out)
	}

	for _, ev := range r.Events {
		if _, err := fmt.Fprintln(p.w, p.event(ev)); err != nil {
			return err
		}
	}
	line := p.summary(r)
	if cycleErr != nil {
		line += " " + p.failed("failed: "+cycleErr.Error())
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func (p *printer) event(ev vtree.Event) string {
	switch ev.Op {
	case vtree.OpAdded:
		return p.added("+ ") + fmt.Sprintf("%s %s", ev.Kind, ev.Path)
	case vtree.OpRemoved:
		if ev.Cascade {
			return p.faint(fmt.Sprintf("    - %s %s", ev.Kind, ev.Path))
		}
		return p.removed("- ") + fmt.Sprintf("%s %s", ev.Kind, ev.Path)
	case vtree.OpParamsChanged:
		return p.changed("~ ") + fmt.Sprintf("%s %s", ev.Kind, ev.Path)
	case vtree.OpReordered:
		moves := make([]string, len(ev.Moves))
		for i, m := range ev.Moves {
			moves[i] = fmt.Sprintf("%d->%d", m.From, m.To)
		}
		return p.moved("↕ ") + fmt.Sprintf("%s %s [%s]", ev.Kind, ev.Path, strings.Join(moves, " "))
	}
	return fmt.Sprintf("? %s %s", ev.Kind, ev.Path)
}

func (p *printer) summary(r *vtree.Report) string {
	s := r.Summary
	return p.faint(fmt.Sprintf("%s %s:", r.Kind, r.CycleID)) + fmt.Sprintf(
		" %d nodes, %d added, %d removed (%d cascaded), %d changed, %d reordered in %s",
		r.Nodes, s.Added, s.Removed, s.Cascaded, s.ParamsChanged, s.Reordered, r.Duration)
}

// cycles prints a history listing.
func (p *printer) cycles(cycles []*stores.Cycle) error {
	if p.json {
		return p.encode(cycles)
	}
	if len(cycles) == 0 {
		_, err := fmt.Fprintln(p.w, "No cycles recorded")
		return err
	}
	for _, c := range cycles {
		status := p.added(string(c.Status))
		if c.Status == stores.CycleStatusFailed {
			status = p.failed(string(c.Status))
		}
		s := c.Summary
		if _, err := fmt.Fprintf(p.w, "%s  %-8s %-6s %-9s +%d -%d ~%d ↕%d  %s\n",
			c.StartedAt.Format("2006-01-02 15:04:05"), c.Session, c.Kind, status,
			s.Added, s.Removed+s.Cascaded, s.ParamsChanged, s.Reordered, p.faint(c.ID)); err != nil {
			return err
		}
	}
	return nil
}

// cycle prints one recorded cycle with its events.
func (p *printer) cycle(c *stores.Cycle, events []*stores.EventRecord) error {
	if p.json {
		return p.encode(struct {
			*stores.Cycle
			Events []*stores.EventRecord `json:"events"`
		}{c, events})
	}
	for _, e := range events {
		if _, err := fmt.Fprintln(p.w, p.event(e.Event())); err != nil {
			return err
		}
	}
	report := &vtree.Report{
		CycleID:  c.ID,
		Session:  c.Session,
		Kind:     c.Kind,
		Duration: c.Duration,
		Nodes:    c.Nodes,
		Summary:  c.Summary,
	}
	line := p.summary(report)
	if c.Error != nil {
		line += " " + p.failed("failed: "+*c.Error)
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func (p *printer) encode(v any) error {
	return json.NewEncoder(p.w).Encode(v)
}

func (p *printer) validation(r validationResult) error {
	if p.json {
		return p.encode(r)
	}
	if r.Valid {
		_, err := fmt.Fprintf(p.w, "%s %s %s\n", p.added("ok"), r.File, p.faint(fmt.Sprintf("(%d nodes)", r.Nodes)))
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s %s: %s\n", p.failed("FAIL"), r.File, r.Error)
	return err
}

// registry prints stored registry entries.
func (p *printer) registry(entries []*stores.RegistryEntry) error {
	if p.json {
		return p.encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.w, "No registry recorded")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(p.w, "%-40s %-8s %s\n", e.Path, e.Kind, p.faint(e.Resource)); err != nil {
			return err
		}
	}
	return nil
}
