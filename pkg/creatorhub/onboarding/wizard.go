// Package onboarding drives the creator setup wizard and the guided tour
// shown after it.
//
// Wizard and Tour hold the state of one user's session. They are not safe
// for concurrent use.
package onboarding

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Step names a wizard step
type Step string

const (
	StepWelcome      Step = "welcome"
	StepAbout        Step = "about"
	StepOrganization Step = "organization"
	StepFeatures     Step = "features"
	StepBranding     Step = "branding"
	StepPayments     Step = "payments"
	StepCommunity    Step = "community"
	StepComplete     Step = "complete"
)

// Steps is the fixed order of the wizard
var Steps = []Step{
	StepWelcome,
	StepAbout,
	StepOrganization,
	StepFeatures,
	StepBranding,
	StepPayments,
	StepCommunity,
	StepComplete,
}

// Feature names accepted in Data.Features
const (
	FeatureCourses        = "courses"
	FeatureLivestreams    = "livestreams"
	FeatureDirectMessages = "direct_messages"
	FeatureEvents         = "events"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Data is everything the wizard collects. It is handed to the Completer as a
// single payload.
type Data struct {
	DisplayName             string   `json:"display_name"`
	Bio                     string   `json:"bio"`
	OrganizationName        string   `json:"organization_name"`
	OrganizationDescription string   `json:"organization_description"`
	UseCase                 string   `json:"use_case"`
	Features                []string `json:"features"`
	PrimaryColor            string   `json:"primary_color"`
	CommunityName           string   `json:"community_name"`
	DefaultChannels         []string `json:"default_channels"`
}

// Valid reports whether the data satisfies the predicate of step
func (d *Data) Valid(step Step) bool {
	switch step {
	case StepAbout:
		return strings.TrimSpace(d.DisplayName) != ""
	case StepOrganization:
		return nameLen(d.OrganizationName) >= 2 && d.UseCase != ""
	case StepFeatures:
		return len(d.Features) > 0
	case StepBranding:
		return hexColor.MatchString(d.PrimaryColor)
	case StepCommunity:
		return nameLen(d.CommunityName) >= 2 && len(d.DefaultChannels) > 0
	case StepWelcome, StepPayments, StepComplete:
		return true
	}
	return false
}

// nameLen counts the characters of a trimmed name
func nameLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Completer performs the terminal "complete onboarding" operation. It must
// apply the payload atomically or fail as a whole.
type Completer interface {
	Complete(ctx context.Context, data Data) error
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, data Data) error

// Complete calls f
func (f CompleterFunc) Complete(ctx context.Context, data Data) error {
	return f(ctx, data)
}

var (
	// ErrNotFinalStep is returned by Complete before the last step is reached
	ErrNotFinalStep = errors.New("onboarding: wizard is not on the final step")
	// ErrAlreadyCompleted is returned by Complete after a successful completion
	ErrAlreadyCompleted = errors.New("onboarding: already completed")
)

// Wizard is the linear setup flow. The zero value is not usable; use NewWizard.
type Wizard struct {
	index     int
	data      Data
	completer Completer
	attempts  int
	completed bool
	errMsg    string
}

// NewWizard starts a wizard at the welcome step
func NewWizard(completer Completer) *Wizard {
	return &Wizard{completer: completer}
}

// Index returns the current step index
func (w *Wizard) Index() int {
	return w.index
}

// Step returns the current step
func (w *Wizard) Step() Step {
	return Steps[w.index]
}

// Data returns the collected data for editing. Changes take effect on the
// next CanProceed or Next call.
func (w *Wizard) Data() *Data {
	return &w.data
}

// CanProceed reports whether the current step's predicate holds
func (w *Wizard) CanProceed() bool {
	return w.data.Valid(w.Step())
}

// IsFinal reports whether the wizard is on the last step
func (w *Wizard) IsFinal() bool {
	return w.index == len(Steps)-1
}

// Next moves forward one step when the current step is valid. It reports
// whether the wizard moved.
func (w *Wizard) Next() bool {
	if w.IsFinal() || !w.CanProceed() {
		return false
	}
	w.index++
	return true
}

// Back moves back one step. It is a no-op on the first step, and after a
// successful completion.
func (w *Wizard) Back() bool {
	if w.index == 0 || w.completed {
		return false
	}
	w.index--
	return true
}

// Complete submits the collected data to the completer, calling it once per
// invocation. On failure the wizard stays on the final step and Error returns
// the message to show; the user may resubmit but the wizard never retries on
// its own. After a success further calls return ErrAlreadyCompleted.
func (w *Wizard) Complete(ctx context.Context) error {
	if !w.IsFinal() {
		return ErrNotFinalStep
	}
	if w.completed {
		return ErrAlreadyCompleted
	}
	w.attempts++

	if err := w.completer.Complete(ctx, w.data); err != nil {
		w.errMsg = err.Error()
		return err
	}
	w.completed = true
	w.errMsg = ""
	return nil
}

// Completed reports whether the completer succeeded
func (w *Wizard) Completed() bool {
	return w.completed
}

// Attempts returns how many times the completer has been called
func (w *Wizard) Attempts() int {
	return w.attempts
}

// Error returns the message of a failed completion, or ""
func (w *Wizard) Error() string {
	return w.errMsg
}
