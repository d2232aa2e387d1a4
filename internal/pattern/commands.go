package pattern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrNothingToUndo is returned when the journal has no applied commands.
var ErrNothingToUndo = errors.New("nothing to undo")

// Command is a reversible mutation of the rule store.
// Apply and Revert are idempotent: repeating either is a no-op.
type Command interface {
	ID() string
	Describe() string
	Apply(ctx context.Context, store RuleStore) error
	Revert(ctx context.Context, store RuleStore) error
}

// commandState tracks whether a command's effect is currently in the store.
type commandState struct {
	id      string
	applied bool
}

func newCommandState() commandState {
	return commandState{id: uuid.NewString()}
}

// ID returns the command's unique identifier.
func (s *commandState) ID() string {
	return s.id
}

// CreateRuleCommand creates a rule; reverting deletes it.
type CreateRuleCommand struct {
	Rule *Rule
	commandState
}

// NewCreateRuleCommand validates the rule and wraps it in a command.
func NewCreateRuleCommand(rule *Rule) (*CreateRuleCommand, error) {
	if err := PrepareRule(rule); err != nil {
		return nil, err
	}
	return &CreateRuleCommand{Rule: rule, commandState: newCommandState()}, nil
}

// Describe returns a short human-readable description.
func (c *CreateRuleCommand) Describe() string {
	return fmt.Sprintf("create rule → %s", c.Rule.Category)
}

// Apply creates the rule.
func (c *CreateRuleCommand) Apply(ctx context.Context, store RuleStore) error {
	if c.applied {
		return nil
	}
	if c.Rule.ID != 0 {
		// Re-applying after a revert restores the same id.
		if err := store.RestoreRule(ctx, c.Rule); err != nil {
			return err
		}
	} else if err := store.CreateRule(ctx, c.Rule); err != nil {
		return err
	}
	c.applied = true
	return nil
}

// Revert deletes the created rule.
func (c *CreateRuleCommand) Revert(ctx context.Context, store RuleStore) error {
	if !c.applied {
		return nil
	}
	if err := store.DeleteRule(ctx, c.Rule.ID); err != nil {
		return err
	}
	c.applied = false
	return nil
}

// UpdateRuleCommand replaces a rule's definition; reverting restores the previous one.
type UpdateRuleCommand struct {
	Rule     *Rule
	previous *Rule
	commandState
}

// NewUpdateRuleCommand validates the new definition and wraps it in a command.
func NewUpdateRuleCommand(rule *Rule) (*UpdateRuleCommand, error) {
	if rule.ID == 0 {
		return nil, fmt.Errorf("rule must have an id to update")
	}
	if err := PrepareRule(rule); err != nil {
		return nil, err
	}
	return &UpdateRuleCommand{Rule: rule, commandState: newCommandState()}, nil
}

// Describe returns a short human-readable description.
func (c *UpdateRuleCommand) Describe() string {
	return fmt.Sprintf("update rule %d", c.Rule.ID)
}

// Apply snapshots the stored rule and writes the new definition.
func (c *UpdateRuleCommand) Apply(ctx context.Context, store RuleStore) error {
	if c.applied {
		return nil
	}
	current, err := store.GetRule(ctx, c.Rule.ID)
	if err != nil {
		return err
	}
	if err := store.UpdateRule(ctx, c.Rule); err != nil {
		return err
	}
	snapshot := current.Clone()
	c.previous = &snapshot
	c.applied = true
	return nil
}

// Revert writes back the snapshot taken by Apply.
func (c *UpdateRuleCommand) Revert(ctx context.Context, store RuleStore) error {
	if !c.applied || c.previous == nil {
		return nil
	}
	if err := store.UpdateRule(ctx, c.previous); err != nil {
		return err
	}
	c.applied = false
	return nil
}

// ToggleRuleCommand sets a rule's active flag; reverting restores the prior flag.
type ToggleRuleCommand struct {
	RuleID int
	Active bool
	prior  bool
	commandState
}

// NewToggleRuleCommand creates a command that sets the rule's active flag.
func NewToggleRuleCommand(ruleID int, active bool) *ToggleRuleCommand {
	return &ToggleRuleCommand{RuleID: ruleID, Active: active, commandState: newCommandState()}
}

// Describe returns a short human-readable description.
func (c *ToggleRuleCommand) Describe() string {
	state := "deactivate"
	if c.Active {
		state = "activate"
	}
	return fmt.Sprintf("%s rule %d", state, c.RuleID)
}

// Apply records the current flag and sets the requested one.
func (c *ToggleRuleCommand) Apply(ctx context.Context, store RuleStore) error {
	if c.applied {
		return nil
	}
	current, err := store.GetRule(ctx, c.RuleID)
	if err != nil {
		return err
	}
	if err := store.SetRuleActive(ctx, c.RuleID, c.Active); err != nil {
		return err
	}
	c.prior = current.IsActive
	c.applied = true
	return nil
}

// Revert restores the flag seen by Apply.
func (c *ToggleRuleCommand) Revert(ctx context.Context, store RuleStore) error {
	if !c.applied {
		return nil
	}
	if err := store.SetRuleActive(ctx, c.RuleID, c.prior); err != nil {
		return err
	}
	c.applied = false
	return nil
}

// DeleteRuleCommand deletes a rule; reverting restores it with its original id and counters.
type DeleteRuleCommand struct {
	snapshot *Rule
	RuleID   int
	commandState
}

// NewDeleteRuleCommand creates a command that deletes the rule.
func NewDeleteRuleCommand(ruleID int) *DeleteRuleCommand {
	return &DeleteRuleCommand{RuleID: ruleID, commandState: newCommandState()}
}

// Describe returns a short human-readable description.
func (c *DeleteRuleCommand) Describe() string {
	return fmt.Sprintf("delete rule %d", c.RuleID)
}

// Apply snapshots and deletes the rule.
func (c *DeleteRuleCommand) Apply(ctx context.Context, store RuleStore) error {
	if c.applied {
		return nil
	}
	current, err := store.GetRule(ctx, c.RuleID)
	if err != nil {
		return err
	}
	if err := store.DeleteRule(ctx, c.RuleID); err != nil {
		return err
	}
	snapshot := current.Clone()
	c.snapshot = &snapshot
	c.applied = true
	return nil
}

// Revert re-inserts the snapshot.
func (c *DeleteRuleCommand) Revert(ctx context.Context, store RuleStore) error {
	if !c.applied || c.snapshot == nil {
		return nil
	}
	if err := store.RestoreRule(ctx, c.snapshot); err != nil {
		return err
	}
	c.applied = false
	return nil
}

// Journal executes rule commands against a store and keeps the applied ones for undo.
type Journal struct {
	store   RuleStore
	logger  *slog.Logger
	applied []Command
	mu      sync.Mutex
}

// NewJournal creates a journal over the given store.
func NewJournal(store RuleStore) *Journal {
	return &Journal{
		store:  store,
		logger: slog.Default().With("component", "rule_journal"),
	}
}

// Execute applies the command. A failed command leaves no journal entry.
func (j *Journal) Execute(ctx context.Context, cmd Command) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := cmd.Apply(ctx, j.store); err != nil {
		return fmt.Errorf("%s: %w", cmd.Describe(), err)
	}
	j.applied = append(j.applied, cmd)
	j.logger.Debug("Applied rule command", "id", cmd.ID(), "command", cmd.Describe())
	return nil
}

// Undo reverts the most recently applied command.
func (j *Journal) Undo(ctx context.Context) (Command, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.applied) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := j.applied[len(j.applied)-1]
	if err := cmd.Revert(ctx, j.store); err != nil {
		return nil, fmt.Errorf("revert %s: %w", cmd.Describe(), err)
	}
	j.applied = j.applied[:len(j.applied)-1]
	j.logger.Debug("Reverted rule command", "id", cmd.ID(), "command", cmd.Describe())
	return cmd, nil
}

// Len returns the number of applied commands.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.applied)
}
