package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FailureSpec describes one injected fault: either a link (node pair, both
// directions) or a single node, failing at a simulated offset and recovering
// a fixed duration later.
type FailureSpec struct {
	Link     []int `yaml:"link,omitempty"` // [from, to]
	Node     *int  `yaml:"node,omitempty"`
	At       int64 `yaml:"at"`
	Duration int64 `yaml:"duration"`
}

// FailurePlan is the set of faults injected into one run.
type FailurePlan struct {
	Failures []FailureSpec `yaml:"failures"`
}

// LoadFailurePlan reads a YAML failure plan from disk.
func LoadFailurePlan(path string) (*FailurePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read failure plan: %w", err)
	}
	var plan FailurePlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse failure plan: %w", err)
	}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *FailurePlan) validate() error {
	for i, f := range p.Failures {
		isLink := len(f.Link) > 0
		isNode := f.Node != nil
		if isLink == isNode {
			return fmt.Errorf("failure %d: exactly one of link or node must be set", i)
		}
		if isLink && len(f.Link) != 2 {
			return fmt.Errorf("failure %d: link must be a [from, to] pair", i)
		}
		if f.At < 0 || f.Duration <= 0 {
			return fmt.Errorf("failure %d: at must be >= 0 and duration > 0", i)
		}
	}
	return nil
}

// Install schedules a failure event and its paired recovery event for every
// spec in the plan. A failure is irreversible until its recovery fires.
func (p *FailurePlan) Install(s *Simulator) error {
	for _, f := range p.Failures {
		if f.Node != nil {
			if err := s.Schedule(&NodeFailureEvent{NodeID: *f.Node}, f.At); err != nil {
				return err
			}
			if err := s.Schedule(&NodeRecoveryEvent{NodeID: *f.Node}, f.At+f.Duration); err != nil {
				return err
			}
			continue
		}
		from, to := f.Link[0], f.Link[1]
		if err := s.Schedule(&LinkFailureEvent{From: from, To: to}, f.At); err != nil {
			return err
		}
		if err := s.Schedule(&LinkRecoveryEvent{From: from, To: to}, f.At+f.Duration); err != nil {
			return err
		}
	}
	return nil
}
