package symexec

import "regexp"

// FunctionAlias rewrites a call to Key into a call to Target: either an
// exact function-name match, or (if Regex is non-nil) any name the
// pattern matches. Entries are tried in the order they were added and
// the first match wins, mirroring the original's fnAliases list walk.
type FunctionAlias struct {
	Key    string
	Target string
	Regex  *regexp.Regexp
}

func (a *FunctionAlias) matches(name string) bool {
	if a.Regex != nil {
		return a.Regex.MatchString(name)
	}
	return a.Key == name
}

// AddFnAlias installs a literal from -> to rewrite, replacing any
// existing entry, literal or regex, whose Key is the same string.
func (s *ExecutionState) AddFnAlias(from, to string) {
	s.removeLiteralAlias(from)
	s.FnAliases = append(s.FnAliases, &FunctionAlias{Key: from, Target: to})
}

// AddFnRegexAlias installs a regex-pattern rewrite; pattern is stored
// verbatim as Key so RemoveFnAlias can later find it by its exact
// source text.
func (s *ExecutionState) AddFnRegexAlias(pattern, to string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.removeLiteralAlias(pattern)
	s.FnAliases = append(s.FnAliases, &FunctionAlias{Key: pattern, Target: to, Regex: re})
	return nil
}

func (s *ExecutionState) removeLiteralAlias(key string) {
	for i, a := range s.FnAliases {
		if a.Key == key {
			s.FnAliases = append(s.FnAliases[:i], s.FnAliases[i+1:]...)
			return
		}
	}
}

// RemoveFnAlias removes whichever entry was stored under exactly this
// key string -- a literal alias added as AddFnAlias(fn, ...), or a
// regex alias whose pattern source is exactly fn. A literal name that
// happens to match some other entry's regex is never removed by this
// call: removal is by stored key equality, never by regex evaluation.
func (s *ExecutionState) RemoveFnAlias(key string) {
	s.removeLiteralAlias(key)
}

// GetFnAlias returns the target of the first alias entry (in addition
// order) whose key equals name, or whose regex matches name, or ("", false)
// if no entry applies.
func (s *ExecutionState) GetFnAlias(name string) (string, bool) {
	for _, a := range s.FnAliases {
		if a.matches(name) {
			return a.Target, true
		}
	}
	return "", false
}
