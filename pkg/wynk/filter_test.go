package wynk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedError struct{ resource string }

func (e *lockedError) Error() string { return e.resource + " is locked" }

func named(name string) ExceptionFilter {
	return FilterFunc(func(*Context, error) *Response { return NewResponse(200, name) })
}

func filterName(t *testing.T, reg FilterRegistration) string {
	t.Helper()
	return reg.Filter.Catch(nil, nil).Body.(string)
}

func TestFilterRegistration_Matches(t *testing.T) {
	notFound := NotFound("gone")
	locked := fmt.Errorf("saving: %w", &lockedError{resource: "doc"})

	tests := []struct {
		name     string
		reg      FilterRegistration
		err      error
		expected bool
	}{
		{"catch-all", Catch(named("all")), errors.New("x"), true},
		{"kind match", Catch(named("nf"), KindNotFound), notFound, true},
		{"kind among several", Catch(named("nf"), KindBadRequest, KindNotFound), notFound, true},
		{"kind mismatch", Catch(named("nf"), KindConflict), notFound, false},
		{"kind on plain error", Catch(named("nf"), KindNotFound), errors.New("x"), false},
		{"kind through wrapping", Catch(named("nf"), KindNotFound), fmt.Errorf("ctx: %w", notFound), true},
		{"type match", CatchType[*lockedError](named("lock")), locked, true},
		{"type through cause", CatchType[*lockedError](named("lock")), Conflict("x").WithCause(&lockedError{}), true},
		{"type mismatch", CatchType[*lockedError](named("lock")), notFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reg.Matches(tt.err))
		})
	}
}

func TestFilterRegistration_Specificity(t *testing.T) {
	assert.Equal(t, CatchAllSpecificity, Catch(named("a")).Specificity)
	assert.Equal(t, KindSpecificity, Catch(named("a"), KindForbidden).Specificity)
	assert.Equal(t, TypeSpecificity, CatchType[*lockedError](named("a")).Specificity)
}

func TestSelectFilter(t *testing.T) {
	route := []FilterRegistration{
		Catch(named("route-all")),
		CatchType[*lockedError](named("route-locked")),
		Catch(named("route-conflict"), KindConflict),
	}
	ctrl := []FilterRegistration{
		Catch(named("ctrl-notfound"), KindNotFound),
	}
	global := []FilterRegistration{
		Catch(named("global-first")),
		Catch(named("global-second")),
	}

	tests := []struct {
		name     string
		err      error
		scopes   [][]FilterRegistration
		expected string
	}{
		{"kind beats type and catch-all", Conflict("x").WithCause(&lockedError{}), [][]FilterRegistration{route, ctrl, global}, "route-conflict"},
		{"type beats catch-all", &lockedError{}, [][]FilterRegistration{route, ctrl, global}, "route-locked"},
		{"catch-all in inner scope beats kind in outer", NotFound("x"), [][]FilterRegistration{route, ctrl, global}, "route-all"},
		{"outer scope when inner has no match", NotFound("x"), [][]FilterRegistration{nil, ctrl, global}, "ctrl-notfound"},
		{"first registration wins ties", errors.New("x"), [][]FilterRegistration{nil, nil, global}, "global-first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, ok := selectFilter(tt.err, tt.scopes...)
			require.True(t, ok)
			assert.Equal(t, tt.expected, filterName(t, reg))
		})
	}

	_, ok := selectFilter(errors.New("x"), nil, ctrl)
	assert.False(t, ok)
}

func TestRecovered(t *testing.T) {
	err := recovered("boom")
	var p *panicError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, "panic: boom", err.Error())
	assert.NotEmpty(t, p.stack)

	cause := errors.New("inner")
	assert.Equal(t, "panic: inner", recovered(cause).Error())
}
