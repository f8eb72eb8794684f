// Package formatter registers the "events" godog format: one JSON line per
// feature, scenario and step, for CI log scrapers.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/formatters"
	messages "github.com/cucumber/messages/go/v21"
)

// Name is the format name to pass to godog.
const Name = "events"

// Prefix starts every event line.
const Prefix = "ENDTOEND_EVENT:"

// Event types
const (
	EventFeatureStart  = "feature_start"
	EventScenarioStart = "scenario_start"
	EventScenarioEnd   = "scenario_end"
	EventStep          = "step"
	EventSummary       = "summary"
)

// Event is one structured line of output
type Event struct {
	Type     string `json:"type"`
	Feature  string `json:"feature,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	File     string `json:"file,omitempty"`

	Total  int `json:"total,omitempty"`
	Passed int `json:"passed,omitempty"`
	Failed int `json:"failed,omitempty"`
}

func init() {
	godog.Format(Name, "JSON event per feature, scenario and step", New)
}

// Events writes Event lines
type Events struct {
	out io.Writer

	feature string
	file    string

	scenario    string
	scenarioErr string
	failed      bool

	total, passed, failedCount int
}

// New creates the formatter; its signature matches godog.FormatterFunc.
func New(suite string, out io.Writer) formatters.Formatter {
	return &Events{out: out}
}

func (f *Events) emit(e Event) {
	data, _ := json.Marshal(e)
	fmt.Fprintf(f.out, "%s%s\n", Prefix, data)
}

func (f *Events) TestRunStarted() {}

func (f *Events) Feature(doc *messages.GherkinDocument, uri string, content []byte) {
	if doc.Feature == nil {
		return
	}
	f.feature, f.file = doc.Feature.Name, uri
	f.emit(Event{Type: EventFeatureStart, Feature: f.feature, File: uri})
}

func (f *Events) Pickle(pickle *messages.Pickle) {
	f.endScenario()
	f.scenario, f.scenarioErr, f.failed = pickle.Name, "", false
	f.total++
	f.emit(Event{Type: EventScenarioStart, Feature: f.feature, Scenario: pickle.Name, File: f.file})
}

func (f *Events) endScenario() {
	if f.scenario == "" {
		return
	}
	status := "passed"
	if f.failed {
		status = "failed"
		f.failedCount++
	} else {
		f.passed++
	}
	f.emit(Event{Type: EventScenarioEnd, Feature: f.feature, Scenario: f.scenario, Status: status, Error: f.scenarioErr})
	f.scenario = ""
}

func (f *Events) step(pickle *messages.Pickle, step *messages.PickleStep, status string, err error) {
	e := Event{Type: EventStep, Feature: f.feature, Scenario: pickle.Name, Step: step.Text, Status: status}
	if err != nil {
		e.Error = err.Error()
	}
	switch status {
	case "failed", "undefined", "ambiguous":
		f.failed = true
		if e.Error != "" {
			f.scenarioErr = e.Error
		} else {
			f.scenarioErr = "step " + status
		}
	}
	f.emit(e)
}

func (f *Events) Defined(*messages.Pickle, *messages.PickleStep, *formatters.StepDefinition) {}

func (f *Events) Passed(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition) {
	f.step(p, s, "passed", nil)
}

func (f *Events) Failed(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition, err error) {
	f.step(p, s, "failed", err)
}

func (f *Events) Skipped(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition) {
	f.step(p, s, "skipped", nil)
}

func (f *Events) Undefined(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition) {
	f.step(p, s, "undefined", nil)
}

func (f *Events) Pending(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition) {
	f.step(p, s, "pending", nil)
}

func (f *Events) Ambiguous(p *messages.Pickle, s *messages.PickleStep, _ *formatters.StepDefinition, err error) {
	f.step(p, s, "ambiguous", err)
}

func (f *Events) Summary() {
	f.endScenario()
	f.emit(Event{Type: EventSummary, Total: f.total, Passed: f.passed, Failed: f.failedCount})
}
