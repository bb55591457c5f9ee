package label

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vipertrack/vipertrack/internal/core/bucket"
	"github.com/vipertrack/vipertrack/internal/core/event"
	"github.com/vipertrack/vipertrack/internal/util"
)

// CombineOp joins child conditions in a tree node.
type CombineOp string

const (
	OpAnd CombineOp = "and"
	OpOr  CombineOp = "or"
	OpNot CombineOp = "not"
)

// LeafKind selects which bucket attribute a leaf condition inspects.
type LeafKind string

const (
	LeafWindowTitle LeafKind = "window_title"
	LeafProcessName LeafKind = "process_name"
	LeafCounter     LeafKind = "counter_threshold"
	LeafTimeOfDay   LeafKind = "time_of_day"
)

// CompareOp compares a counter against a threshold.
type CompareOp string

const (
	CmpGE CompareOp = ">="
	CmpGT CompareOp = ">"
	CmpEQ CompareOp = "=="
	CmpNE CompareOp = "!="
	CmpLT CompareOp = "<"
	CmpLE CompareOp = "<="
)

var compareOps = map[CompareOp]bool{
	CmpGE: true, CmpGT: true, CmpEQ: true, CmpNE: true, CmpLT: true, CmpLE: true,
}

// Condition is one node of a label's condition tree: either a combinator
// (Op set, Children populated) or a leaf (Kind set). The JSON shape is what
// the settings surface writes into the labels file.
type Condition struct {
	Op       CombineOp    `json:"op,omitempty"`
	Children []*Condition `json:"children,omitempty"`

	Kind LeafKind `json:"kind,omitempty"`

	// window_title / process_name parameters. Pattern is a case-insensitive
	// substring by default; Regex switches to regular-expression matching and
	// Word matches against the normalized title word list instead.
	Pattern string `json:"pattern,omitempty"`
	Regex   bool   `json:"regex,omitempty"`
	Word    bool   `json:"word,omitempty"`

	// counter_threshold parameters.
	Counter string    `json:"counter,omitempty"`
	Compare CompareOp `json:"compare,omitempty"`
	Value   int       `json:"value,omitempty"`

	// time_of_day parameters, "HH:MM" wall clock, [From, To) with wrap past
	// midnight allowed.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Compiled at validation time.
	re             *regexp.Regexp
	fromMin, toMin int
	validated      bool
}

// counterNames maps condition counter names onto bucket counters, including
// the rollups and per-button counts.
func counterValue(b *bucket.ActivityBucket, name string) (int, bool) {
	switch name {
	case "char_key":
		return b.Counter(event.KindCharKey), true
	case "arrow_key":
		return b.Counter(event.KindArrowKey), true
	case "special_key":
		return b.Counter(event.KindSpecialKey), true
	case "mouse_click":
		return b.Counter(event.KindMouseClick), true
	case "mouse_scroll":
		return b.Counter(event.KindMouseScroll), true
	case "key_total":
		return b.KeyTotal(), true
	case "click_total":
		return b.ClickTotal(), true
	case "left_click":
		return b.Clicks[event.ButtonLeft], true
	case "right_click":
		return b.Clicks[event.ButtonRight], true
	case "middle_click":
		return b.Clicks[event.ButtonMiddle], true
	default:
		return 0, false
	}
}

// Validate checks the whole tree against the depth limit, verifies leaf
// parameters, and compiles regexes and time ranges. A tree that fails
// validation is rejected at load time, before it can ever reach evaluation.
func (c *Condition) Validate(maxDepth int) error {
	return c.validate(1, maxDepth)
}

func (c *Condition) validate(depth, maxDepth int) error {
	if c == nil {
		return fmt.Errorf("condition node is nil")
	}
	if depth > maxDepth {
		return fmt.Errorf("condition tree exceeds maximum depth %d", maxDepth)
	}
	if c.Op != "" && c.Kind != "" {
		return fmt.Errorf("condition node cannot be both combinator %q and leaf %q", c.Op, c.Kind)
	}

	if c.Op != "" {
		switch c.Op {
		case OpAnd, OpOr:
			if len(c.Children) == 0 {
				return fmt.Errorf("%q combinator requires at least one child", c.Op)
			}
		case OpNot:
			if len(c.Children) != 1 {
				return fmt.Errorf("\"not\" combinator requires exactly one child, got %d", len(c.Children))
			}
		default:
			return fmt.Errorf("unknown combinator %q", c.Op)
		}
		for _, child := range c.Children {
			if err := child.validate(depth+1, maxDepth); err != nil {
				return err
			}
		}
		c.validated = true
		return nil
	}

	switch c.Kind {
	case LeafWindowTitle, LeafProcessName:
		if c.Pattern == "" {
			return fmt.Errorf("%q leaf requires a pattern", c.Kind)
		}
		if c.Regex && c.Word {
			return fmt.Errorf("%q leaf cannot combine regex and word matching", c.Kind)
		}
		if c.Regex {
			re, err := regexp.Compile("(?i)" + c.Pattern)
			if err != nil {
				return fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
			}
			c.re = re
		}
	case LeafCounter:
		if _, ok := counterValue(&bucket.ActivityBucket{}, c.Counter); !ok {
			return fmt.Errorf("unknown counter %q", c.Counter)
		}
		if !compareOps[c.Compare] {
			return fmt.Errorf("unknown compare operator %q", c.Compare)
		}
	case LeafTimeOfDay:
		fromMin, err := parseMinute(c.From)
		if err != nil {
			return fmt.Errorf("invalid from time %q: %w", c.From, err)
		}
		toMin, err := parseMinute(c.To)
		if err != nil {
			return fmt.Errorf("invalid to time %q: %w", c.To, err)
		}
		if fromMin == toMin {
			return fmt.Errorf("time_of_day range %q-%q is empty", c.From, c.To)
		}
		c.fromMin, c.toMin = fromMin, toMin
	case "":
		return fmt.Errorf("condition node has neither combinator nor leaf kind")
	default:
		return fmt.Errorf("unknown leaf kind %q", c.Kind)
	}

	c.validated = true
	return nil
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Evaluate walks the tree against a closed bucket. Deterministic, free of
// side effects, and short-circuiting: AND stops at the first false, OR at the
// first true, so expensive leaves (regex matches) only run when they can
// still change the outcome. A failure is isolated to the label owning this
// tree; the caller keeps evaluating other labels.
func Evaluate(c *Condition, b *bucket.ActivityBucket) (bool, error) {
	return evaluate(c, b, 1)
}

// evaluationDepthLimit guards against trees mutated after validation.
const evaluationDepthLimit = 64

func evaluate(c *Condition, b *bucket.ActivityBucket, depth int) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("condition node is nil")
	}
	if depth > evaluationDepthLimit {
		return false, fmt.Errorf("condition tree exceeds evaluation depth limit %d", evaluationDepthLimit)
	}

	switch c.Op {
	case OpAnd:
		for _, child := range c.Children {
			ok, err := evaluate(child, b, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for _, child := range c.Children {
			ok, err := evaluate(child, b, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		if len(c.Children) != 1 {
			return false, fmt.Errorf("\"not\" combinator requires exactly one child")
		}
		ok, err := evaluate(c.Children[0], b, depth+1)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}

	return evaluateLeaf(c, b)
}

func evaluateLeaf(c *Condition, b *bucket.ActivityBucket) (bool, error) {
	switch c.Kind {
	case LeafWindowTitle:
		dominant, _ := b.DominantWindow()
		return matchText(c, dominant.Title, dominant.Words)
	case LeafProcessName:
		dominant, _ := b.DominantWindow()
		return matchText(c, dominant.Process, nil)
	case LeafCounter:
		value, ok := counterValue(b, c.Counter)
		if !ok {
			return false, fmt.Errorf("unknown counter %q", c.Counter)
		}
		return compare(value, c.Compare, c.Value)
	case LeafTimeOfDay:
		if !c.validated {
			return false, fmt.Errorf("time_of_day leaf was not validated")
		}
		minute := util.GetTimeProvider().MinuteOfDay(b.Start)
		if c.fromMin < c.toMin {
			return minute >= c.fromMin && minute < c.toMin, nil
		}
		// Range wraps past midnight, e.g. 22:00-06:00.
		return minute >= c.fromMin || minute < c.toMin, nil
	default:
		return false, fmt.Errorf("unknown leaf kind %q", c.Kind)
	}
}

func matchText(c *Condition, text string, words []string) (bool, error) {
	switch {
	case c.Regex:
		re := c.re
		if re == nil {
			compiled, err := regexp.Compile("(?i)" + c.Pattern)
			if err != nil {
				return false, fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
			}
			re = compiled
		}
		return re.MatchString(text), nil
	case c.Word:
		for _, word := range words {
			if strings.EqualFold(word, c.Pattern) {
				return true, nil
			}
		}
		return false, nil
	default:
		return strings.Contains(strings.ToLower(text), strings.ToLower(c.Pattern)), nil
	}
}

func compare(value int, op CompareOp, threshold int) (bool, error) {
	switch op {
	case CmpGE:
		return value >= threshold, nil
	case CmpGT:
		return value > threshold, nil
	case CmpEQ:
		return value == threshold, nil
	case CmpNE:
		return value != threshold, nil
	case CmpLT:
		return value < threshold, nil
	case CmpLE:
		return value <= threshold, nil
	default:
		return false, fmt.Errorf("unknown compare operator %q", op)
	}
}
