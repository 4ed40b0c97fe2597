package reconcile

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// FilterRule removes rows of one client's data type whose Column value, upper-cased,
// contains Marker
type FilterRule struct {
	Name     string
	Client   string
	DataType string
	Column   string
	Marker   string
}

// FilterReport describes what a pre-filter did
type FilterReport struct {
	Rule          string // Empty when no rule applies
	Applied       bool   // False when no rule is registered or its column is absent
	ColumnMissing bool
	RowsBefore    int
	RowsRemoved   int
}

// DefaultFilterRules returns the built-in per-client rules
func DefaultFilterRules() []FilterRule {
	return []FilterRule{
		{
			// EJA: youth and adult education classes
			Name:     "goias_students_exclude_eja",
			Client:   "goias",
			DataType: "students",
			Column:   "Composição",
			Marker:   "EJA",
		},
	}
}

type filterKey struct {
	client   string
	dataType string
}

// FilterRegistry holds per-(client, data type) exclusion rules
type FilterRegistry struct {
	mu     sync.RWMutex
	rules  map[filterKey]FilterRule
	logger *zap.Logger
}

// NewFilterRegistry creates a registry holding the given rules
func NewFilterRegistry(logger *zap.Logger, rules ...FilterRule) (*FilterRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FilterRegistry{
		rules:  make(map[filterKey]FilterRule),
		logger: logger,
	}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a rule, replacing any rule registered for the same pair
func (r *FilterRegistry) Register(rule FilterRule) error {
	if rule.Client == "" || rule.DataType == "" {
		return fmt.Errorf("filter rule %q: client and data type are required", rule.Name)
	}
	if rule.Column == "" || rule.Marker == "" {
		return fmt.Errorf("filter rule %q: column and marker are required", rule.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[filterKey{rule.Client, rule.DataType}] = rule
	return nil
}

// Rule returns the rule registered for the pair, if any
func (r *FilterRegistry) Rule(client, dataType string) (FilterRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[filterKey{client, dataType}]
	return rule, ok
}

// Apply runs the rule registered for (client, dataType) against ds.
// It returns ds unchanged when no rule is registered or when the rule's column is
// absent from the dataset.
func (r *FilterRegistry) Apply(client, dataType string, ds model.Dataset) (model.Dataset, FilterReport) {
	report := FilterReport{RowsBefore: ds.Len()}

	rule, ok := r.Rule(client, dataType)
	if !ok {
		return ds, report
	}
	report.Rule = rule.Name

	if !ds.HasColumn(rule.Column) {
		report.ColumnMissing = true
		r.logger.Warn("Filter column not found in external data, skipping filter",
			zap.String("rule", rule.Name),
			zap.String("column", rule.Column),
			zap.Strings("columns", ds.Columns))
		return ds, report
	}

	marker := strings.ToUpper(rule.Marker)
	filtered := ds.Filter(func(row model.Row) bool {
		value := row[rule.Column]
		if model.IsNull(value) {
			return true
		}
		return !strings.Contains(strings.ToUpper(fmt.Sprint(value)), marker)
	})

	report.Applied = true
	report.RowsRemoved = ds.Len() - filtered.Len()

	r.logger.Info("Filter applied",
		zap.String("rule", rule.Name),
		zap.Int("removed", report.RowsRemoved),
		zap.Int("remaining", filtered.Len()))

	return filtered, report
}
