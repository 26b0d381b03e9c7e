package ident

import (
	"errors"
	"fmt"
	"sort"
)

// Strategy names how per-cut signals are aggregated into one decision.
type Strategy string

const (
	// StrategyRobust lets every cut vote for its own best match.
	StrategyRobust Strategy = "robust"
	// StrategyPooled sums the cuts into one signal and ranks it once.
	StrategyPooled Strategy = "pooled"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown matching strategy")

// ParseStrategy validates a strategy name. The empty string selects
// StrategyRobust.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", StrategyRobust:
		return StrategyRobust, nil
	case StrategyPooled:
		return StrategyPooled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Match is the score of one bank signature.
type Match struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Decision is the aggregated outcome of matching a set of signals.
type Decision struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
	// Votes is the number of signals supporting ID. Pooled decisions count
	// every contributing signal.
	Votes int `json:"votes"`
	// IDSet lists the best candidates, best first.
	IDSet []Match `json:"id_set"`
}

// Matcher compares signals of a fixed length against a bank. Templates are
// precomputed, so a Matcher is read-only and safe for concurrent use.
type Matcher struct {
	bank        *Bank
	length      int
	startOffset int
	setSize     int
	templates   [][]float64
}

// NewMatcher prepares templates for signals of length samples, compared from
// startOffset on. setSize bounds the length of Decision.IDSet.
func NewMatcher(bank *Bank, length, startOffset, setSize int) (*Matcher, error) {
	if bank == nil || bank.Len() == 0 {
		return nil, ErrEmptyBank
	}
	if length <= 0 {
		return nil, fmt.Errorf("signal length must be positive, got %d", length)
	}
	if startOffset < 0 || startOffset >= length {
		return nil, fmt.Errorf("start offset %d outside signal of length %d", startOffset, length)
	}
	if setSize <= 0 {
		setSize = 1
	}
	m := &Matcher{
		bank:        bank,
		length:      length,
		startOffset: startOffset,
		setSize:     setSize,
		templates:   make([][]float64, bank.Len()),
	}
	for id := range m.templates {
		m.templates[id] = Template(bank.signatures[id], length)
	}
	return m, nil
}

// Templates returns the precomputed template of every signature.
func (m *Matcher) Templates() [][]float64 {
	out := make([][]float64, len(m.templates))
	for i, t := range m.templates {
		out[i] = append([]float64(nil), t...)
	}
	return out
}

// Rank scores signal against every signature and returns the best k matches
// by descending score, ties in bank order. A flat signal ranks nothing: it
// would score 1 against every signature.
func (m *Matcher) Rank(signal []float64, k int) []Match {
	if flat(signal, m.startOffset) {
		return nil
	}
	matches := make([]Match, len(m.templates))
	for id, t := range m.templates {
		matches[id] = Match{ID: id, Score: Score(Distance(signal, t, m.startOffset))}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Identify aggregates signals with the given strategy. ok is false when no
// signal carried information.
func (m *Matcher) Identify(strategy Strategy, signals [][]float64) (Decision, bool) {
	if strategy == StrategyPooled {
		return m.Pooled(signals)
	}
	return m.Robust(signals)
}

// Robust lets every signal vote for its own best signature.
//
// The winner is the signature with the most votes; ties go to the higher
// mean score, then to the lower ID. Bank order therefore only decides
// between signatures equal in both votes and mean score, so a later
// signature with stronger votes wins a tie in vote count over an earlier
// one. The decision score is the mean of the winner's votes, and IDSet
// ranks all voted signatures the same way.
func (m *Matcher) Robust(signals [][]float64) (Decision, bool) {
	type tally struct {
		id    int
		votes int
		sum   float64
	}
	tallies := make(map[int]*tally)
	for _, s := range signals {
		top := m.Rank(s, 1)
		if len(top) == 0 {
			continue
		}
		t, ok := tallies[top[0].ID]
		if !ok {
			t = &tally{id: top[0].ID}
			tallies[top[0].ID] = t
		}
		t.votes++
		t.sum += top[0].Score
	}
	if len(tallies) == 0 {
		return Decision{ID: -1}, false
	}

	ranked := make([]*tally, 0, len(tallies))
	for _, t := range tallies {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(a, b int) bool {
		ta, tb := ranked[a], ranked[b]
		if ta.votes != tb.votes {
			return ta.votes > tb.votes
		}
		ma, mb := ta.sum/float64(ta.votes), tb.sum/float64(tb.votes)
		if ma != mb {
			return ma > mb
		}
		return ta.id < tb.id
	})

	d := Decision{
		ID:    ranked[0].id,
		Score: ranked[0].sum / float64(ranked[0].votes),
		Votes: ranked[0].votes,
	}
	for i := 0; i < len(ranked) && i < m.setSize; i++ {
		d.IDSet = append(d.IDSet, Match{ID: ranked[i].id, Score: ranked[i].sum / float64(ranked[i].votes)})
	}
	return d, true
}

// Pooled sums all signals sample by sample and ranks the sum once.
func (m *Matcher) Pooled(signals [][]float64) (Decision, bool) {
	if len(signals) == 0 {
		return Decision{ID: -1}, false
	}
	pooled := make([]float64, m.length)
	for _, s := range signals {
		for i := 0; i < len(pooled) && i < len(s); i++ {
			pooled[i] += s[i]
		}
	}
	set := m.Rank(pooled, m.setSize)
	if len(set) == 0 {
		return Decision{ID: -1}, false
	}
	return Decision{ID: set[0].ID, Score: set[0].Score, Votes: len(signals), IDSet: set}, true
}
