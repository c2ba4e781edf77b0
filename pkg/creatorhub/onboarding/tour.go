package onboarding

import (
	"context"
	"errors"
)

// TourStep is one stop of the guided tour. Target is the id of the element
// the overlay points at; Route is the page it lives on, empty for any page.
type TourStep struct {
	ID     string `json:"id"`
	Target string `json:"target"`
	Route  string `json:"route,omitempty"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// TourSteps is the fixed tour shown after onboarding
var TourSteps = []TourStep{
	{ID: "dashboard", Target: "tour-dashboard", Route: "/dashboard", Title: "Your dashboard", Body: "See members, revenue and recent activity at a glance."},
	{ID: "community", Target: "tour-community", Route: "/community", Title: "Community", Body: "Channels and posts for your members live here."},
	{ID: "courses", Target: "tour-courses", Route: "/courses", Title: "Courses", Body: "Build courses from video lessons and choose who can watch them."},
	{ID: "memberships", Target: "tour-memberships", Route: "/memberships", Title: "Memberships", Body: "Create paid tiers and decide what each one unlocks."},
	{ID: "livestreams", Target: "tour-livestreams", Route: "/livestreams", Title: "Livestreams", Body: "Schedule live sessions for your members."},
	{ID: "settings", Target: "tour-settings", Route: "/settings", Title: "Settings", Body: "Set your brand color, custom domain and features."},
}

// Navigator moves the user to a page
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// Dismisser records that the user dismissed the tour
type Dismisser interface {
	Dismiss(ctx context.Context) error
}

// DismisserFunc adapts a function to Dismisser
type DismisserFunc func(ctx context.Context) error

// Dismiss calls f
func (f DismisserFunc) Dismiss(ctx context.Context) error {
	return f(ctx)
}

// ErrTourDismissed is returned when moving a dismissed tour
var ErrTourDismissed = errors.New("onboarding: tour dismissed")

// Tour is the guided-tour overlay. A step only counts as shown once the user
// is on its route.
type Tour struct {
	index     int
	route     string
	shown     bool
	dismissed bool
	nav       Navigator
	dismisser Dismisser
}

// NewTour creates a tour for a user currently on route. nav may be nil when
// the caller never moves between pages.
func NewTour(nav Navigator, dismisser Dismisser, route string) *Tour {
	return &Tour{nav: nav, dismisser: dismisser, route: route}
}

// Start shows the first step
func (t *Tour) Start(ctx context.Context) error {
	return t.show(ctx, 0)
}

// Index returns the current step index
func (t *Tour) Index() int {
	return t.index
}

// Current returns the current step
func (t *Tour) Current() TourStep {
	return TourSteps[t.index]
}

// Route returns the page the user is on
func (t *Tour) Route() string {
	return t.route
}

// Visible reports whether the overlay should render
func (t *Tour) Visible() bool {
	return t.shown && !t.dismissed
}

// Dismissed reports whether the tour was dismissed
func (t *Tour) Dismissed() bool {
	return t.dismissed
}

// Next advances one step. Advancing past the last step dismisses the tour.
func (t *Tour) Next(ctx context.Context) error {
	if t.dismissed {
		return ErrTourDismissed
	}
	if t.index == len(TourSteps)-1 {
		return t.Dismiss(ctx)
	}
	return t.show(ctx, t.index+1)
}

// Back returns to the previous step. It is a no-op on the first step.
func (t *Tour) Back(ctx context.Context) error {
	if t.dismissed {
		return ErrTourDismissed
	}
	if t.index == 0 {
		return nil
	}
	return t.show(ctx, t.index-1)
}

// show moves to step i, navigating first when the step lives on another page.
// If navigation fails the tour stays where it was.
func (t *Tour) show(ctx context.Context, i int) error {
	if t.dismissed {
		return ErrTourDismissed
	}
	step := TourSteps[i]
	if step.Route != "" && step.Route != t.route {
		if t.nav != nil {
			if err := t.nav.Navigate(ctx, step.Route); err != nil {
				return err
			}
		}
		t.route = step.Route
	}
	t.index = i
	t.shown = true
	return nil
}

// Dismiss hides the tour for good and records it through the Dismisser once.
// Recording is best-effort: a failure is returned but never retried, and the
// tour stays dismissed.
func (t *Tour) Dismiss(ctx context.Context) error {
	if t.dismissed {
		return nil
	}
	t.dismissed = true
	if t.dismisser == nil {
		return nil
	}
	return t.dismisser.Dismiss(ctx)
}
