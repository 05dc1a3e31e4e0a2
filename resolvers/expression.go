package resolvers

import (
	"strings"

	opts "github.com/goliatone/go-options"
	"github.com/knadh/koanf/v2"
)

const (
	defaultExpressionStart = "{{"
	defaultExpressionEnd   = "}}"
)

type expression struct {
	settings   *settings
	delimiters delimiters
}

// NewExpressionResolver evaluates values that are entirely wrapped in
// start/end (default "{{" and "}}"). The expression sees the whole
// configuration, so "{{ app.port + 1 }}" works. Partial matches such
// as "port {{ 1 }}" are left alone.
func NewExpressionResolver(start, end string, options ...Option) Resolver {
	s := newSettings(options)
	if s.evaluator == nil {
		s.evaluator = opts.NewExprEvaluator()
	}
	if start == "" {
		start = defaultExpressionStart
	}
	if end == "" {
		end = defaultExpressionEnd
	}

	return &expression{
		settings:   s,
		delimiters: delimiters{Start: start, End: end},
	}
}

func (s *expression) Resolve(k *koanf.Koanf) *koanf.Koanf {
	if k == nil {
		return k
	}

	keys, values := stringLeaves(k)
	for _, key := range keys {
		expr, ok := s.fullMatch(values[key])
		if !ok {
			continue
		}

		result, err := s.settings.evaluator.Evaluate(opts.RuleContext{Snapshot: k.Raw()}, strings.TrimSpace(expr))
		if err != nil {
			s.settings.onError(key, values[key], err, k)
			continue
		}
		k.Set(key, result)
	}

	return k
}

func (s *expression) fullMatch(input string) (string, bool) {
	if !strings.HasPrefix(input, s.delimiters.Start) || !strings.HasSuffix(input, s.delimiters.End) {
		return "", false
	}
	start := len(s.delimiters.Start)
	end := len(input) - len(s.delimiters.End)
	if end < start {
		return "", false
	}
	return input[start:end], true
}
