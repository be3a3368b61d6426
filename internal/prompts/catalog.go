// Package prompts holds the bot-facing copy of the assistant: prompts, fixed
// error texts, leave type labels and the quick actions shown on an empty chat.
package prompts

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Texts struct {
	LeaveTypePrompt  string `yaml:"leave_type_prompt"`
	StartDatePrompt  string `yaml:"start_date_prompt"`
	EndDatePrompt    string `yaml:"end_date_prompt"`
	EndBeforeStart   string `yaml:"end_before_start"`
	PastDate         string `yaml:"past_date"`
	ReasonPrompt     string `yaml:"reason_prompt"`
	HalfDayPrompt    string `yaml:"half_day_prompt"`
	HalfDayRetry     string `yaml:"half_day_retry"`
	ConfirmPrompt    string `yaml:"confirm_prompt"`
	ConfirmRetry     string `yaml:"confirm_retry"`
	Cancelled        string `yaml:"cancelled"`
	InvalidLeaveType string `yaml:"invalid_leave_type"`
	BalancePrompt    string `yaml:"balance_prompt"`
	ApplyFailed      string `yaml:"apply_failed"`
	BalanceFailed    string `yaml:"balance_failed"`
	ChatFailed       string `yaml:"chat_failed"`
}

type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

type QuickAction struct {
	Label string `yaml:"label" json:"label"`
	Query string `yaml:"query" json:"query"`
}

type Welcome struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
}

type Catalog struct {
	AssistantName  string            `yaml:"assistant_name"`
	UserName       string            `yaml:"user_name"`
	Welcome        Welcome           `yaml:"welcome"`
	Texts          Texts             `yaml:"texts"`
	BalanceOptions []Option          `yaml:"balance_options"`
	LeaveTypes     map[string]string `yaml:"leave_types"`
	QuickActions   []QuickAction     `yaml:"quick_actions"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		// the embedded file is part of the build
		panic(errors.Wrap(err, "prompts: embedded catalog"))
	}
	return &c
}

// Load reads an override file on top of the embedded catalog. Keys missing
// from the file keep their default value; lists present in the file replace
// the default lists. An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read prompts file %s", path)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "parse prompts file %s", path)
	}
	return c, nil
}

// LeaveTypeName expands a leave type code (CL, PL, SL) to its display name.
// Unknown codes are returned unchanged.
func (c *Catalog) LeaveTypeName(code string) string {
	if name, ok := c.LeaveTypes[code]; ok {
		return name
	}
	return code
}

// BalanceTypes are the leave types a balance can be requested for; ""
// means all types. Override files only relabel them.
var BalanceTypes = []string{"", "CL", "PL", "SL"}

// IsBalanceType reports whether v is one of BalanceTypes.
func IsBalanceType(v string) bool {
	for _, t := range BalanceTypes {
		if t == v {
			return true
		}
	}
	return false
}
