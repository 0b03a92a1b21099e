package term

import (
	"errors"
	"testing"

	"github.com/classpoint/classpoint/internal/apperr"
)

func TestParseName(t *testing.T) {
	for _, name := range []string{First, Second, Third} {
		got, err := ParseName(name)
		if err != nil || got != name {
			t.Errorf("ParseName(%q) = (%q, %v)", name, got, err)
		}
	}

	for _, name := range []string{"", "first", "FOURTH", "Second "} {
		if _, err := ParseName(name); err == nil {
			t.Errorf("ParseName(%q) accepted", name)
		} else if !errors.Is(err, apperr.ErrBadRequest) {
			t.Errorf("ParseName(%q) error kind = %v, want bad request", name, err)
		}
	}
}
