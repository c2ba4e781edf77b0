package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validData() Data {
	return Data{
		DisplayName:      "Jane",
		OrganizationName: "Jane's Yoga Studio",
		UseCase:          "fitness",
		Features:         []string{FeatureCourses},
		PrimaryColor:     "#AA00ff",
		CommunityName:    "Yoga Friends",
		DefaultChannels:  []string{"general"},
	}
}

func TestDataValid(t *testing.T) {
	tests := []struct {
		name   string
		step   Step
		mutate func(*Data)
		want   bool
	}{
		{"welcome always passes", StepWelcome, func(d *Data) { *d = Data{} }, true},
		{"payments always passes", StepPayments, func(d *Data) { *d = Data{} }, true},
		{"about needs a display name", StepAbout, func(d *Data) { d.DisplayName = "  " }, false},
		{"about ok", StepAbout, func(*Data) {}, true},
		{"organization name too short", StepOrganization, func(d *Data) { d.OrganizationName = " J " }, false},
		{"organization name one accented letter", StepOrganization, func(d *Data) { d.OrganizationName = "é" }, false},
		{"organization name two accented letters", StepOrganization, func(d *Data) { d.OrganizationName = "éa" }, true},
		{"organization needs a use case", StepOrganization, func(d *Data) { d.UseCase = "" }, false},
		{"organization ok", StepOrganization, func(*Data) {}, true},
		{"features need one pick", StepFeatures, func(d *Data) { d.Features = nil }, false},
		{"branding short hex", StepBranding, func(d *Data) { d.PrimaryColor = "#abc" }, false},
		{"branding missing hash", StepBranding, func(d *Data) { d.PrimaryColor = "aa00ff" }, false},
		{"branding ok", StepBranding, func(*Data) {}, true},
		{"community name too short", StepCommunity, func(d *Data) { d.CommunityName = "Y" }, false},
		{"community name one wide character", StepCommunity, func(d *Data) { d.CommunityName = " 日 " }, false},
		{"community name two wide characters", StepCommunity, func(d *Data) { d.CommunityName = "日本" }, true},
		{"community needs a channel", StepCommunity, func(d *Data) { d.DefaultChannels = []string{} }, false},
		{"community ok", StepCommunity, func(*Data) {}, true},
		{"unknown step", Step("bogus"), func(*Data) {}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validData()
			tt.mutate(&d)
			assert.Equal(t, tt.want, d.Valid(tt.step))
		})
	}
}

func TestWizardNavigation(t *testing.T) {
	w := NewWizard(CompleterFunc(func(context.Context, Data) error { return nil }))

	assert.Equal(t, StepWelcome, w.Step())
	assert.False(t, w.Back(), "back on the first step is a no-op")
	assert.Equal(t, 0, w.Index())

	require.True(t, w.Next())
	assert.Equal(t, StepAbout, w.Step())
	assert.False(t, w.Next(), "about needs a display name")
	assert.Equal(t, StepAbout, w.Step())

	*w.Data() = validData()
	for !w.IsFinal() {
		require.True(t, w.Next(), "stuck on %s", w.Step())
	}
	assert.Equal(t, StepComplete, w.Step())
	assert.False(t, w.Next(), "cannot move past the final step")

	require.True(t, w.Back())
	assert.Equal(t, StepCommunity, w.Step())
}

func TestWizardCompleteBeforeFinalStep(t *testing.T) {
	calls := 0
	w := NewWizard(CompleterFunc(func(context.Context, Data) error {
		calls++
		return nil
	}))

	assert.ErrorIs(t, w.Complete(context.Background()), ErrNotFinalStep)
	assert.Equal(t, 0, calls)
}

func TestWizardCompleteFailureThenRetry(t *testing.T) {
	fail := errors.New("slug taken")
	var got []Data
	w := NewWizard(CompleterFunc(func(_ context.Context, d Data) error {
		got = append(got, d)
		if len(got) == 1 {
			return fail
		}
		return nil
	}))
	*w.Data() = validData()
	for w.Next() {
	}
	require.True(t, w.IsFinal())

	err := w.Complete(context.Background())
	assert.ErrorIs(t, err, fail)
	assert.False(t, w.Completed())
	assert.Equal(t, "slug taken", w.Error())
	assert.Equal(t, 1, w.Attempts(), "a failure is not retried")
	assert.Equal(t, StepComplete, w.Step())

	require.NoError(t, w.Complete(context.Background()))
	assert.True(t, w.Completed())
	assert.Empty(t, w.Error())
	assert.Equal(t, 2, w.Attempts())
	assert.Equal(t, validData(), got[1], "the whole payload is handed over")

	assert.ErrorIs(t, w.Complete(context.Background()), ErrAlreadyCompleted)
	assert.Equal(t, 2, w.Attempts())
	assert.False(t, w.Back())
}

type recordingNavigator struct {
	routes []string
	fail   error
}

func (n *recordingNavigator) Navigate(_ context.Context, route string) error {
	if n.fail != nil {
		return n.fail
	}
	n.routes = append(n.routes, route)
	return nil
}

func TestTourNavigation(t *testing.T) {
	ctx := context.Background()
	nav := &recordingNavigator{}
	tour := NewTour(nav, nil, "/dashboard")

	assert.False(t, tour.Visible())
	require.NoError(t, tour.Start(ctx))
	assert.True(t, tour.Visible())
	assert.Empty(t, nav.routes, "already on the first step's page")

	require.NoError(t, tour.Next(ctx))
	assert.Equal(t, "community", tour.Current().ID)
	assert.Equal(t, "/community", tour.Route())
	assert.Equal(t, []string{"/community"}, nav.routes)

	require.NoError(t, tour.Back(ctx))
	require.NoError(t, tour.Back(ctx))
	assert.Equal(t, 0, tour.Index())
	assert.Equal(t, []string{"/community", "/dashboard"}, nav.routes)
}

func TestTourNavigationFailureKeepsStep(t *testing.T) {
	ctx := context.Background()
	nav := &recordingNavigator{}
	tour := NewTour(nav, nil, "/dashboard")
	require.NoError(t, tour.Start(ctx))

	nav.fail = errors.New("route blocked")
	assert.Error(t, tour.Next(ctx))
	assert.Equal(t, 0, tour.Index())
	assert.Equal(t, "/dashboard", tour.Route())
}

func TestTourDismiss(t *testing.T) {
	ctx := context.Background()
	calls := 0
	tour := NewTour(nil, DismisserFunc(func(context.Context) error {
		calls++
		return errors.New("db down")
	}), "/dashboard")
	require.NoError(t, tour.Start(ctx))

	assert.Error(t, tour.Dismiss(ctx))
	assert.True(t, tour.Dismissed())
	assert.False(t, tour.Visible())

	assert.NoError(t, tour.Dismiss(ctx))
	assert.Equal(t, 1, calls, "a failed dismissal is not retried")
	assert.ErrorIs(t, tour.Next(ctx), ErrTourDismissed)
	assert.ErrorIs(t, tour.Back(ctx), ErrTourDismissed)
}

func TestTourNextOnLastStepDismisses(t *testing.T) {
	ctx := context.Background()
	calls := 0
	tour := NewTour(nil, DismisserFunc(func(context.Context) error {
		calls++
		return nil
	}), "")
	require.NoError(t, tour.Start(ctx))
	for tour.Index() < len(TourSteps)-1 {
		require.NoError(t, tour.Next(ctx))
	}
	assert.Equal(t, "settings", tour.Current().ID)

	require.NoError(t, tour.Next(ctx))
	assert.True(t, tour.Dismissed())
	assert.Equal(t, 1, calls)
}

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard(time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	first, err := g.First(ctx, "a")
	require.NoError(t, err)
	assert.True(t, first)

	first, _ = g.First(ctx, "a")
	assert.False(t, first)

	first, _ = g.First(ctx, "b")
	assert.True(t, first, "keys are independent")

	now = now.Add(time.Hour)
	first, _ = g.First(ctx, "a")
	assert.True(t, first, "claims expire")
}
