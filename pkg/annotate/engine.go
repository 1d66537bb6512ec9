// Package annotate cross-references the register description, the address
// map and the UVM register model, and inserts hdl path slice bindings for
// every qualifying register field.
package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
	"github.com/OpenTraceLab/regbind/pkg/binding"
	"github.com/OpenTraceLab/regbind/pkg/keyword"
	"github.com/OpenTraceLab/regbind/pkg/rdl"
	"github.com/OpenTraceLab/regbind/pkg/svsource"
)

// Documents are the texts an annotation run works on.
type Documents struct {
	Description string
	AddressMap  string // searched in Description when empty
	Source      string
}

// Result is the outcome of a run.
type Result struct {
	Output         string
	Notes          []Note
	Inserted       int
	Dictionary     *rdl.Dictionary
	Classification *rdl.Classification
}

// Changed reports whether Output differs from the input source.
func (r *Result) Changed() bool {
	return r.Inserted > 0
}

// Count returns the number of notes of kind.
func (r *Result) Count(kind NoteKind) int {
	n := 0
	for _, note := range r.Notes {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

// Failures returns the lookup-failure notes.
func (r *Result) Failures() []Note {
	var out []Note
	for _, note := range r.Notes {
		if note.Kind.IsFailure() {
			out = append(out, note)
		}
	}
	return out
}

// Engine runs annotations for one configuration.
type Engine struct {
	cfg    *Config
	filter *keyword.Filter
	log    *slog.Logger
}

// New validates cfg and returns an engine.
func New(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		filter: cfg.Filter(),
		log:    cfg.Logger.With("block", cfg.Block),
	}, nil
}

// Analyze extracts the dictionary and classifies the address map without
// touching any source.
func (e *Engine) Analyze(docs Documents) (*rdl.Dictionary, *rdl.Classification, error) {
	dict, err := rdl.ExtractFormat(e.cfg.Format, docs.Description, e.cfg.Block)
	if err != nil {
		return nil, nil, rerrors.Wrap(err, "register description")
	}
	e.log.Debug("extracted register dictionary", "registers", dict.Len(), "format", e.cfg.Format)

	mapText := docs.AddressMap
	if mapText == "" {
		mapText = docs.Description
	}
	cls, err := rdl.Classify(mapText, e.cfg.Block, e.filter)
	switch {
	case err != nil && rerrors.Is(err, rerrors.ErrNotFound) && e.cfg.Format == rdl.FormatBLK:
		e.log.Debug("no address map, classifying every BLK register as scalar")
		cls = scalarsFrom(dict, e.filter)
	case err != nil:
		return nil, nil, rerrors.Wrap(err, "address map")
	}

	for _, ig := range cls.Ignored {
		e.log.Debug("ignored address map statement", "line", ig.Line, "reason", ig.Reason, "text", ig.Text)
	}
	if cls.Len() == 0 {
		return nil, nil, &rerrors.NotFoundError{Resource: "registers for block", ID: e.cfg.Block}
	}
	e.log.Debug("classified address map", "map", cls.Map,
		"scalars", len(cls.Scalars), "arrays", len(cls.Arrays),
		"external", len(cls.ExternalScalars)+len(cls.ExternalArrays))

	return dict, cls, nil
}

// scalarsFrom classifies every dictionary register as Scalar, in document order.
func scalarsFrom(dict *rdl.Dictionary, filter *keyword.Filter) *rdl.Classification {
	cls := &rdl.Classification{}
	for _, reg := range dict.Registers() {
		entry := rdl.Entry{Name: reg.Root, Type: reg.Name, Category: rdl.Scalar, Line: reg.Line}
		if filter.IsDisqualified(reg.Root) {
			cls.Disqualified = append(cls.Disqualified, entry)
		} else {
			cls.Scalars = append(cls.Scalars, entry)
		}
	}
	return cls
}

// Run annotates docs.Source. Per-register problems become notes; only
// document-level problems return an error.
func (e *Engine) Run(docs Documents) (*Result, error) {
	dict, cls, err := e.Analyze(docs)
	if err != nil {
		return nil, err
	}

	file, err := svsource.Parse(docs.Source)
	if err != nil {
		return nil, rerrors.Wrap(err, "verification source")
	}

	r := &run{
		Engine:  e,
		dict:    dict,
		file:    file,
		src:     file.Source(),
		claimed: make(map[int]bool),
		result:  &Result{Dictionary: dict, Classification: cls},
	}

	for _, entry := range cls.Disqualified {
		r.note(Note{Kind: Disqualified, Register: entry.Name, Category: entry.Category, Message: "name matches a disqualifying keyword"})
	}
	for _, entry := range cls.Scalars {
		r.scalar(entry)
	}
	for _, entry := range cls.Arrays {
		r.array(entry)
	}
	for _, cat := range []rdl.Category{rdl.ExternalScalar, rdl.ExternalArray} {
		for _, entry := range cls.Entries(cat) {
			r.note(Note{Kind: External, Register: entry.Name, Category: entry.Category, Message: "storage is external to the model"})
		}
	}

	r.result.Output = applyEdits(r.src, r.edits)
	e.log.Info("annotation finished", "inserted", r.result.Inserted, "notes", len(r.result.Notes))
	return r.result, nil
}

// run holds the state of a single Engine.Run.
type run struct {
	*Engine
	dict    *rdl.Dictionary
	file    *svsource.File
	src     string
	claimed map[int]bool // span start offsets already annotated
	edits   []edit
	result  *Result
}

func (r *run) note(n Note) {
	level := slog.LevelDebug
	if n.Kind.IsFailure() || n.Kind == StaleField {
		level = slog.LevelWarn
	}
	r.log.Log(context.Background(), level, n.Message, "kind", n.Kind.String(), "register", n.Register, "field", n.Field)
	r.result.Notes = append(r.result.Notes, n)
}

func (r *run) lookup(entry rdl.Entry) (*rdl.Register, bool) {
	if reg, ok := r.dict.Lookup(entry.Name); ok {
		return reg, true
	}
	if entry.Type != "" {
		return r.dict.Lookup(entry.Type)
	}
	return nil, false
}

func (r *run) scalar(entry rdl.Entry) {
	root := rdl.CanonicalRoot(entry.Name, r.cfg.Block)
	spans, rejected := r.file.LocateScalar(root, r.cfg.Block)
	if len(spans) == 0 {
		r.notFound(entry, rejected)
		return
	}

	reg, ok := r.lookup(entry)
	if !ok {
		r.note(Note{Kind: MissingFields, Register: entry.Name, Category: entry.Category, Message: "register not found in description document"})
		return
	}

	for i := range spans {
		span := &spans[i]
		r.annotate(entry, reg, span, func(f rdl.Field) (string, bool) {
			if !span.Declares(f.Name) {
				r.note(Note{Kind: StaleField, Register: entry.Name, Category: entry.Category, Field: f.Name, Block: span.Name, Line: span.Line,
					Message: "field is not declared in " + span.Name})
				return "", false
			}
			return binding.Scalar(entry.Name, f.Name), true
		})
	}
}

func (r *run) array(entry rdl.Entry) {
	root := rdl.CanonicalRoot(entry.Name, r.cfg.Block)
	spans := r.file.LocateArray(root)
	if len(spans) == 0 {
		r.notFound(entry, nil)
		return
	}
	span := &spans[0]
	if len(spans) > 1 {
		r.note(Note{Kind: AmbiguousMatch, Register: entry.Name, Category: entry.Category, Block: span.Name, Line: span.Line,
			Message: fmt.Sprintf("%d loops construct %s, annotating the first", len(spans), span.Name)})
	}

	reg, ok := r.lookup(entry)
	if !ok {
		r.note(Note{Kind: MissingFields, Register: entry.Name, Category: entry.Category, Message: "register not found in description document"})
		return
	}

	r.annotate(entry, reg, span, func(f rdl.Field) (string, bool) {
		return binding.ArrayIndexed(root, f.Name, span.Index), true
	})
}

func (r *run) notFound(entry rdl.Entry, rejected []svsource.Candidate) {
	if len(rejected) == 0 {
		what := "register class"
		if entry.Category.IsArray() {
			what = "array construction loop"
		}
		r.note(Note{Kind: BlockNotFound, Register: entry.Name, Category: entry.Category, Message: what + " not found in verification source"})
		return
	}
	for _, c := range rejected {
		r.note(Note{Kind: AmbiguousMatch, Register: entry.Name, Category: entry.Category, Block: c.Name,
			Message: "rejected candidate " + c.Name + ": " + c.Reason})
	}
}

// annotate renders one statement per qualifying field and queues them for
// insertion before span's closing marker.
func (r *run) annotate(entry rdl.Entry, reg *rdl.Register, span *svsource.Span, render func(rdl.Field) (string, bool)) {
	if r.claimed[span.Start] {
		r.note(Note{Kind: DuplicateBlock, Register: entry.Name, Category: entry.Category, Block: span.Name, Line: span.Line,
			Message: span.Name + " was already annotated in this run"})
		return
	}
	r.claimed[span.Start] = true

	region := span.Region(r.src)
	indent := span.Indent() + r.cfg.IndentUnit
	newline := span.Newline()

	var (
		b        strings.Builder
		inserted int
		present  int
	)
	for _, field := range reg.Fields {
		if r.filter.IsDisqualified(field.Name) {
			r.note(Note{Kind: FieldSkipped, Register: entry.Name, Category: entry.Category, Field: field.Name,
				Message: "field name matches a disqualifying keyword"})
			continue
		}
		stmt, ok := render(field)
		if !ok {
			continue
		}
		if strings.Contains(region, stmt) {
			present++
			continue
		}
		b.WriteString(indent)
		b.WriteString(stmt)
		b.WriteString(newline)
		inserted++
	}

	switch {
	case inserted > 0:
		r.edits = append(r.edits, edit{offset: span.MarkerOffset, text: b.String()})
		r.result.Inserted += inserted
		msg := fmt.Sprintf("%d statement(s) inserted into %s", inserted, span.Name)
		if present > 0 {
			msg += fmt.Sprintf(", %d already present", present)
		}
		r.note(Note{Kind: Annotated, Register: entry.Name, Category: entry.Category, Block: span.Name, Line: span.Line, Message: msg})
	case present > 0:
		r.note(Note{Kind: AlreadyAnnotated, Register: entry.Name, Category: entry.Category, Block: span.Name, Line: span.Line,
			Message: fmt.Sprintf("all %d statement(s) already present in %s", present, span.Name)})
	default:
		r.note(Note{Kind: NoFields, Register: entry.Name, Category: entry.Category, Block: span.Name, Line: span.Line,
			Message: "no qualifying fields"})
	}
}

// edit inserts text at a byte offset of the original source.
type edit struct {
	offset int
	text   string
}

// applyEdits splices every edit into src in one pass. Offsets refer to the
// unmodified src; edits at the same offset keep their queue order.
func applyEdits(src string, edits []edit) string {
	if len(edits) == 0 {
		return src
	}
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].offset < edits[j].offset
	})

	size := len(src)
	for _, e := range edits {
		size += len(e.text)
	}

	var b strings.Builder
	b.Grow(size)
	prev := 0
	for _, e := range edits {
		b.WriteString(src[prev:e.offset])
		b.WriteString(e.text)
		prev = e.offset
	}
	b.WriteString(src[prev:])
	return b.String()
}
