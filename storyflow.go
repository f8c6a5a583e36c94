// Package storyflow is a deterministic interpreter for story-flow
// projects: directed graphs of dialogue and narrative nodes authored in
// an external editor. A host loads a project, then drives a cursor
// through it — Start, NextNode, GetParsedText, GetAvailableChoices —
// to present the story and advance it on user input.
//
// The package is a thin facade: the node-dispatched state machine lives
// in internal/flow, text rendering in internal/template, and expression
// evaluation in internal/expreval. One Runtime owns one running story;
// it is single-threaded by design, and independent Runtimes never share
// mutable state.
package storyflow

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/narrativeflow/storyflow/internal/expreval"
	"github.com/narrativeflow/storyflow/internal/flow"
	"github.com/narrativeflow/storyflow/internal/loader"
	"github.com/narrativeflow/storyflow/internal/runtimeconfig"
	"github.com/narrativeflow/storyflow/internal/selector"
	"github.com/narrativeflow/storyflow/internal/template"
	"github.com/narrativeflow/storyflow/internal/variation"
	"github.com/narrativeflow/storyflow/internal/varstore"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// Public aliases over the walker's outcome types, so hosts only import
// this package.
type (
	Outcome     = flow.Outcome
	OutcomeKind = flow.OutcomeKind
	FlowError   = flow.FlowError
)

const (
	Emitted = flow.Emitted
	Ended   = flow.Ended
	BadJump = flow.BadJump

	// TheEnd is the terminal cursor sentinel.
	TheEnd = flow.TheEnd
)

// ErrNotLoaded is returned by every operation invoked before Load.
var ErrNotLoaded = errors.New("storyflow: no project loaded")

// Runtime is the public cursor API over one loaded project and one
// running story.
type Runtime struct {
	cfg    *runtimeconfig.Config
	logger *Logger

	// OnLocaleWarning, when set, observes every render that had to fall
	// back to the main locale. Non-fatal; rendering already succeeded
	// with the fallback content by the time it fires.
	OnLocaleWarning func(elementID, requestedLocale string)

	project     *model.Project
	executionID string
	locale      string

	globals   *varstore.Store
	locals    *varstore.Store
	registry  *variation.Registry
	evaluator *expreval.Evaluator
	templater *template.Templater
	walker    *flow.Walker
	pick      selector.Pick

	nodeOwner   map[string]string      // node ID -> owning flow ID
	byPermalink map[string]*model.Node // permalink -> node
	incoming    map[string][]*model.Node
}

// New builds an empty Runtime; call Load (or LoadFromSource) before
// anything else.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		cfg:      runtimeconfig.New(),
		globals:  varstore.New(),
		locals:   varstore.New(),
		registry: variation.New(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = NewLogger(nil)
	}
	return r
}

// Load accepts a project and resets the whole runtime around it: every
// element's runtime flags clear, globals reseed from the project's
// variable declarations, locals and the sub-flow stack empty, variation
// pools refill, and the cursor lands on the Start of flowName (or the
// first flow of the first flow group when empty).
func (r *Runtime) Load(project *model.Project, flowName string) error {
	if project == nil {
		return &model.LoadError{Kind: model.MissingField, Field: "project"}
	}
	if err := project.Validate(); err != nil {
		return err
	}
	r.project = project
	r.executionID = uuid.NewString()
	log := r.logger.withExecution(r.executionID)

	if project.APIVersion != model.CurrentAPIVersion {
		log.VersionMismatch(project.APIVersion, model.CurrentAPIVersion)
	}

	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	r.pick = func(n int) int {
		if n <= 0 {
			return 0
		}
		return rng.Intn(n)
	}

	resetRuntimeFlags(project)

	r.globals.Clear()
	r.locals.Clear()
	for _, v := range project.Variables {
		if v.Type == model.VarSeparator {
			continue
		}
		r.globals.Set(v.Key, varstore.Coerce(string(v.Type), v.Value))
	}

	if r.registry.Len() == 0 {
		r.registry.Build(project)
	} else {
		r.registry.Reset()
	}

	r.locale = project.Locale
	if r.cfg.Locale != "" {
		r.locale = r.cfg.Locale
	}
	if r.locale == "" {
		r.locale = project.MainLocale
	}

	r.evaluator = expreval.New(r.cfg.CacheCapacity)
	r.evaluator.SetStrictUndefined(r.cfg.StrictUndefined)

	r.templater = template.New(r.registry, r.evaluator, r.globals, r.locals, project.MainLocale, variation.Picker(r.pick))
	r.templater.OnEvalError = log.EvalError
	r.templater.OnLocaleFallback = func(elementID, requested string) {
		log.LocaleFallback(elementID, requested)
		if r.OnLocaleWarning != nil {
			r.OnLocaleWarning(elementID, requested)
		}
	}

	r.walker = flow.New(flow.Deps{
		Project:   project,
		Templater: r.templater,
		Evaluator: r.evaluator,
		Globals:   r.globals,
		Locals:    r.locals,
		Pick:      r.pick,
		MaxDepth:  r.cfg.MaxDepth,
		Locale:    r.locale,
		Observer:  log,
	})

	r.buildIndexes()
	return r.walker.Start("", flowName)
}

// LoadFromSource parses a JSON project source document and loads it.
func (r *Runtime) LoadFromSource(data []byte, flowName string) error {
	project, err := model.ParseProject(data)
	if err != nil {
		return err
	}
	return r.Load(project, flowName)
}

// LoadProjectYAML parses a YAML project document into a Project. The
// JSON source format stays authoritative; YAML is a hand-authoring
// convenience that converts to the same model. Pass the result to Load.
func LoadProjectYAML(data []byte) (*model.Project, error) {
	return loader.LoadProjectYAML(data)
}

// Start moves the cursor to nodeID (or the flow's Start node) in the
// named flow, leaving variables and visitation state untouched.
func (r *Runtime) Start(nodeID, flowName string) error {
	if r.walker == nil {
		return ErrNotLoaded
	}
	return r.walker.Start(nodeID, flowName)
}

// Restart moves the cursor back to the current flow's Start node.
func (r *Runtime) Restart() error {
	if r.walker == nil {
		return ErrNotLoaded
	}
	return r.walker.Restart()
}

// NextNode advances the story by one emitted node. elementID names the
// chosen element when the current node is a Choice.
func (r *Runtime) NextNode(elementID string) (Outcome, error) {
	if r.walker == nil {
		return Outcome{}, ErrNotLoaded
	}
	return r.walker.Next(elementID), nil
}

// ExecutionID identifies this Load's run in log output.
func (r *Runtime) ExecutionID() string { return r.executionID }

// Locale returns the locale renders currently resolve against.
func (r *Runtime) Locale() string { return r.locale }

// SetLocale switches the rendering locale mid-story; missing
// translations keep falling back to the project's main locale.
func (r *Runtime) SetLocale(locale string) {
	r.locale = locale
	if r.walker != nil {
		r.walker.SetLocale(locale)
	}
}

// Project exposes the loaded project for host-side inspection.
func (r *Runtime) Project() *model.Project { return r.project }

func (r *Runtime) buildIndexes() {
	r.nodeOwner = make(map[string]string)
	r.byPermalink = make(map[string]*model.Node)
	r.incoming = make(map[string][]*model.Node)

	for _, f := range r.project.Flows {
		for _, n := range f.Nodes {
			r.nodeOwner[n.ID] = f.ID
			if n.Permalink != "" {
				r.byPermalink[n.Permalink] = n
			}
			for _, c := range n.Connections {
				r.incoming[c.To] = append(r.incoming[c.To], n)
			}
		}
	}
}

func resetRuntimeFlags(project *model.Project) {
	for _, f := range project.Flows {
		for _, n := range f.Nodes {
			n.PreviousNodeID = ""
			for _, e := range n.Elements {
				e.Visited = false
				e.JustOnce = false
				e.IfNoMore = false
				e.WasHiddenBecauseEmpty = false
			}
		}
	}
}
