package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "attempt:create", true},
		{"student", "attempt:grade", false},
		{"student", "report:view-own", true},
		{"student", "report:view-all", false},
		{"teacher", "attempt:grade", true},
		{"teacher", "grade:calculate", true},
		{"teacher", "term:manage", false},
		{"admin", "term:manage", true},
		{"admin", "anything:at-all", true},
		{"", "exam:view", false},
		{"visitor", "exam:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("student", "report:view-all", "report:view-own") {
		t.Error("student should match report:view-own via Any")
	}
	if c.Any("student", "report:view-all", "grade:calculate") {
		t.Error("student matched staff-only permissions")
	}
}

func TestMatchPermPrefix(t *testing.T) {
	if !matchPerm("exam:*", "exam:create") {
		t.Error("prefix wildcard should match exam:create")
	}
	if matchPerm("exam:*", "attempt:create") {
		t.Error("prefix wildcard matched a different prefix")
	}
}

func TestStaff(t *testing.T) {
	if !Staff("teacher") || !Staff("admin") {
		t.Error("teacher and admin are staff")
	}
	if Staff("student") || Staff("") {
		t.Error("students are not staff")
	}
}
