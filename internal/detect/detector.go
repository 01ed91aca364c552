package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"

	"github.com/mrzor/endpoint-sec/internal/attributes"
	"github.com/mrzor/endpoint-sec/internal/eventprocessor"
)

// Match is one rule that matched an event.
type Match struct {
	RuleID string
	Title  string
	Level  string
	Path   string
	// Conditions lists the search identifiers that evaluated true.
	Conditions []string
}

// fieldConfig maps the common Sigma field names onto the flattened event.
func fieldConfig() sigma.Config {
	return sigma.Config{
		Title: "endpoint security events",
		FieldMappings: map[string]sigma.FieldMapping{
			"EventType": {TargetNames: []string{"kind"}},
			"User":      {TargetNames: []string{"event.username"}},
			"Image":     {TargetNames: []string{"process.executable.path"}},
			"ProcessId": {TargetNames: []string{"process.pid"}},
			"TargetUid": {TargetNames: []string{"event.uid"}},
			"TargetGid": {TargetNames: []string{"event.gid"}},
		},
	}
}

type loadedRule struct {
	path string
	eval *evaluator.RuleEvaluator
}

// Detector holds the current rule set.
type Detector struct {
	dir string

	mu    sync.RWMutex
	rules []loadedRule

	matches atomic.Uint64
	onMatch func(Match, attributes.Env)
}

// New loads the rules found in dir. Rules that fail to parse are reported in
// the returned error; the detector is still usable with the others.
func New(dir string) (*Detector, error) {
	d := &Detector{dir: dir}
	return d, d.Load()
}

// OnMatch registers fn to be called for every match, after it is logged.
// It must be set before events are delivered.
func (d *Detector) OnMatch(fn func(Match, attributes.Env)) {
	d.onMatch = fn
}

// Dir returns the rules directory.
func (d *Detector) Dir() string { return d.dir }

// Load rescans the rules directory and replaces the rule set.
func (d *Detector) Load() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("reading rules directory: %w", err)
	}

	var (
		rules []loadedRule
		errs  []error
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
			continue
		}
		path := filepath.Join(d.dir, name)
		eval, err := loadRule(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if eval != nil {
			rules = append(rules, loadedRule{path: path, eval: eval})
		}
	}
	slices.SortFunc(rules, func(a, b loadedRule) int { return strings.Compare(a.path, b.path) })

	d.mu.Lock()
	d.rules = rules
	d.mu.Unlock()

	log.Printf("loaded %d sigma rules from %s", len(rules), d.dir)
	return errors.Join(errs...)
}

// loadRule parses one file. It returns nil without error for YAML files
// that are not Sigma rules.
func loadRule(path string) (*evaluator.RuleEvaluator, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule %s: %w", path, err)
	}
	if sigma.InferFileType(content) != sigma.RuleFile {
		return nil, nil
	}
	rule, err := sigma.ParseRule(content)
	if err != nil {
		return nil, fmt.Errorf("parsing rule %s: %w", path, err)
	}
	return evaluator.ForRule(rule, evaluator.WithConfig(fieldConfig())), nil
}

// Len returns the number of loaded rules.
func (d *Detector) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rules)
}

// Matches returns the total number of matches so far.
func (d *Detector) Matches() uint64 { return d.matches.Load() }

// Check evaluates every rule against env, in rule file order.
func (d *Detector) Check(ctx context.Context, env attributes.Env) []Match {
	d.mu.RLock()
	rules := d.rules
	d.mu.RUnlock()
	if len(rules) == 0 {
		return nil
	}

	fields := env.Flatten()
	var found []Match
	for _, r := range rules {
		result, err := r.eval.Matches(ctx, fields)
		if err != nil {
			log.Printf("evaluating rule %s on %s: %v", r.eval.Rule.ID, env.Kind(), err)
			continue
		}
		if !result.Match {
			continue
		}

		var conditions []string
		for name, ok := range result.SearchResults {
			if ok {
				conditions = append(conditions, name)
			}
		}
		slices.Sort(conditions)
		found = append(found, Match{
			RuleID:     r.eval.Rule.ID,
			Title:      r.eval.Rule.Title,
			Level:      r.eval.Rule.Level,
			Path:       r.path,
			Conditions: conditions,
		})
	}
	return found
}

// HandleEvent implements eventprocessor.Sink.
func (d *Detector) HandleEvent(ctx context.Context, del eventprocessor.Delivery) error {
	for _, m := range d.Check(ctx, del.Env) {
		d.matches.Add(1)
		log.Printf("rule %q (%s, level %s) matched %s: %s",
			m.Title, m.RuleID, m.Level, del.Entry.Name, strings.Join(m.Conditions, ", "))
		if d.onMatch != nil {
			d.onMatch(m, del.Env)
		}
	}
	return nil
}
