// Package tooling defines the closed tool-call contract between the model and
// the corpus, and validates raw calls against it. Validation is pure: it
// never touches the corpus.
package tooling

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/pkg/utils"
)

// ErrInvalidIntent is returned when the mandatory intent wrapper is missing,
// malformed, empty, or too long. Returned to the model, never fatal.
var ErrInvalidIntent = errors.New("invalid intent")

// ErrInvalidArguments is returned for missing or ill-shaped required
// arguments, out-of-domain optionals, or an unknown tool name.
var ErrInvalidArguments = errors.New("invalid arguments")

// Tool names in the closed set.
const (
	ToolCount     = "count"
	ToolSearch    = "search"
	ToolRead      = "read"
	ToolReadBatch = "read_batch"
	ToolList      = "list"
)

var intentRe = regexp.MustCompile(`(?s)\A\s*<intent>(.*?)</intent>\s*\z`)

// CountArgs selects documents by term set.
type CountArgs struct {
	Terms   []string
	Fuzzy   bool
	Cooccur bool
}

// SearchArgs selects and ranks documents.
type SearchArgs struct {
	Terms        []string
	Limit        int
	Fuzzy        bool
	Cooccur      bool
	Exclude      []string
	MinPages     int
	MaxPages     int
	FragmentSize int
	Fragments    int
}

// ReadArgs reads one document in full.
type ReadArgs struct {
	DocID    string
	MaxChars int
}

// ReadBatchArgs reads many documents under a shared budget.
type ReadBatchArgs struct {
	DocIDs        []string
	MaxCharsTotal int
}

// ListArgs lists document names.
type ListArgs struct {
	Query string
	Fuzzy bool
}

// Call is a validated tool call. Exactly one of the variant pointers is set,
// selected by Name.
type Call struct {
	Seq    int
	Name   string
	Intent string

	Count     *CountArgs
	Search    *SearchArgs
	Read      *ReadArgs
	ReadBatch *ReadBatchArgs
	List      *ListArgs
}

// Validator checks raw tool calls against the contract and clamps numeric
// optionals to the configured bounds.
type Validator struct {
	search config.SearchConfig
	agent  config.AgentConfig
}

// NewValidator returns a Validator bound to the given limits.
func NewValidator(search config.SearchConfig, agent config.AgentConfig) *Validator {
	return &Validator{search: search, agent: agent}
}

// Validate checks one raw call. On success the returned Call carries the
// extracted intent text and exactly one populated argument variant.
func (v *Validator) Validate(name string, raw map[string]any) (*Call, error) {
	intent, err := v.extractIntent(raw)
	if err != nil {
		return nil, err
	}

	call := &Call{Name: name, Intent: intent}
	switch name {
	case ToolCount:
		call.Count, err = v.countArgs(raw)
	case ToolSearch:
		call.Search, err = v.searchArgs(raw)
	case ToolRead:
		call.Read, err = v.readArgs(raw)
	case ToolReadBatch:
		call.ReadBatch, err = v.readBatchArgs(raw)
	case ToolList:
		call.List, err = v.listArgs(raw)
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", ErrInvalidArguments, name)
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// extractIntent pulls the justification out of the <intent> wrapper. Every
// call must state why it advances the investigation.
func (v *Validator) extractIntent(raw map[string]any) (string, error) {
	val, ok := raw["intent"]
	if !ok {
		return "", fmt.Errorf("%w: intent argument missing", ErrInvalidIntent)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: intent must be a string", ErrInvalidIntent)
	}
	m := intentRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: intent must be wrapped in <intent>...</intent>", ErrInvalidIntent)
	}
	intent := strings.TrimSpace(m[1])
	if intent == "" {
		return "", fmt.Errorf("%w: intent is empty", ErrInvalidIntent)
	}
	if len(intent) > v.agent.MaxIntentChars {
		return "", fmt.Errorf("%w: intent exceeds %d characters", ErrInvalidIntent, v.agent.MaxIntentChars)
	}
	return intent, nil
}

func (v *Validator) countArgs(raw map[string]any) (*CountArgs, error) {
	terms, err := requiredStrings(raw, "terms")
	if err != nil {
		return nil, err
	}
	fuzzy, err := optionalBool(raw, "fuzzy")
	if err != nil {
		return nil, err
	}
	cooccur, err := optionalBool(raw, "cooccur")
	if err != nil {
		return nil, err
	}
	return &CountArgs{Terms: terms, Fuzzy: fuzzy, Cooccur: cooccur}, nil
}

func (v *Validator) searchArgs(raw map[string]any) (*SearchArgs, error) {
	terms, err := requiredStrings(raw, "terms")
	if err != nil {
		return nil, err
	}
	args := &SearchArgs{Terms: terms}

	if args.Fuzzy, err = optionalBool(raw, "fuzzy"); err != nil {
		return nil, err
	}
	if args.Cooccur, err = optionalBool(raw, "cooccur"); err != nil {
		return nil, err
	}
	if args.Exclude, err = optionalStrings(raw, "exclude"); err != nil {
		return nil, err
	}

	limit, err := optionalInt(raw, "limit")
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		args.Limit = utils.ClampInt(limit, 1, v.search.MaxLimit)
	} else {
		args.Limit = v.search.DefaultLimit
	}

	if args.MinPages, err = optionalInt(raw, "min_pages"); err != nil {
		return nil, err
	}
	if args.MaxPages, err = optionalInt(raw, "max_pages"); err != nil {
		return nil, err
	}
	if args.MaxPages > 0 && args.MinPages > args.MaxPages {
		return nil, fmt.Errorf("%w: min_pages exceeds max_pages", ErrInvalidArguments)
	}

	fragSize, err := optionalInt(raw, "fragment_size")
	if err != nil {
		return nil, err
	}
	if fragSize > 0 {
		args.FragmentSize = utils.ClampInt(fragSize, v.search.MinFragmentSize, v.search.MaxFragmentSize)
	}
	frags, err := optionalInt(raw, "fragments")
	if err != nil {
		return nil, err
	}
	if frags > 0 {
		args.Fragments = utils.ClampInt(frags, 1, v.search.MaxFragments)
	}
	return args, nil
}

func (v *Validator) readArgs(raw map[string]any) (*ReadArgs, error) {
	docID, err := requiredString(raw, "doc_id")
	if err != nil {
		return nil, err
	}
	maxChars, err := optionalInt(raw, "max_chars")
	if err != nil {
		return nil, err
	}
	if maxChars > 0 {
		maxChars = utils.ClampInt(maxChars, v.search.ReadMinChars, v.search.ReadMaxChars)
	}
	return &ReadArgs{DocID: docID, MaxChars: maxChars}, nil
}

func (v *Validator) readBatchArgs(raw map[string]any) (*ReadBatchArgs, error) {
	ids, err := requiredStrings(raw, "doc_ids")
	if err != nil {
		return nil, err
	}
	budget, err := optionalInt(raw, "max_chars_total")
	if err != nil {
		return nil, err
	}
	if budget > 0 && budget > v.search.BatchBudgetChars {
		budget = v.search.BatchBudgetChars
	}
	return &ReadBatchArgs{DocIDs: ids, MaxCharsTotal: budget}, nil
}

func (v *Validator) listArgs(raw map[string]any) (*ListArgs, error) {
	query, err := optionalString(raw, "query")
	if err != nil {
		return nil, err
	}
	fuzzy, err := optionalBool(raw, "fuzzy")
	if err != nil {
		return nil, err
	}
	return &ListArgs{Query: query, Fuzzy: fuzzy}, nil
}

func requiredString(raw map[string]any, key string) (string, error) {
	val, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
	}
	s, ok := val.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidArguments, key)
	}
	return strings.TrimSpace(s), nil
}

func optionalString(raw map[string]any, key string) (string, error) {
	val, ok := raw[key]
	if !ok {
		return "", nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArguments, key)
	}
	return strings.TrimSpace(s), nil
}

func requiredStrings(raw map[string]any, key string) ([]string, error) {
	out, err := optionalStrings(raw, key)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s must be a non-empty list of strings", ErrInvalidArguments, key)
	}
	return out, nil
}

func optionalStrings(raw map[string]any, key string) ([]string, error) {
	val, ok := raw[key]
	if !ok {
		return nil, nil
	}
	list, ok := val.([]any)
	if !ok {
		// A bare string is accepted as a single-element list.
		if s, sok := val.(string); sok && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}, nil
		}
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidArguments, key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, sok := item.(string)
		if !sok {
			return nil, fmt.Errorf("%w: %s must contain only strings", ErrInvalidArguments, key)
		}
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// optionalInt accepts JSON numbers (float64) and ints. Negative values are
// out of domain for every numeric optional in the contract.
func optionalInt(raw map[string]any, key string) (int, error) {
	val, ok := raw[key]
	if !ok {
		return 0, nil
	}
	var n int
	switch t := val.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	case int64:
		n = int(t)
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArguments, key)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidArguments, key)
	}
	return n, nil
}

func optionalBool(raw map[string]any, key string) (bool, error) {
	val, ok := raw[key]
	if !ok {
		return false, nil
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArguments, key)
	}
	return b, nil
}
