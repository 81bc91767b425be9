package expr

import (
	"reflect"
	"testing"
	"time"
)

func TestAndOf(t *testing.T) {
	a := Eq(Prop("type"), String("update"))
	b := Eq(Prop("wiki"), String("main"))
	c := Bool(true)

	t.Run("no operands yields Empty", func(t *testing.T) {
		if !IsEmpty(AndOf()) {
			t.Error("AndOf() should be Empty")
		}
	})

	t.Run("single operand passes through", func(t *testing.T) {
		if got := AndOf(a); !reflect.DeepEqual(got, a) {
			t.Errorf("AndOf(a) = %#v, want a", got)
		}
	})

	t.Run("empty operands dropped", func(t *testing.T) {
		got := AndOf(Empty{}, a, Empty{}, b)
		want := And{Left: a, Right: b}
		if !reflect.DeepEqual(got, Node(want)) {
			t.Errorf("AndOf() = %#v, want %#v", got, want)
		}
	})

	t.Run("left fold is deterministic", func(t *testing.T) {
		got := AndOf(a, b, Eq(Prop("hidden"), c))
		want := And{Left: And{Left: a, Right: b}, Right: Eq(Prop("hidden"), c)}
		if !reflect.DeepEqual(got, Node(want)) {
			t.Errorf("AndOf() = %#v, want %#v", got, want)
		}
	})
}

func TestOrOf(t *testing.T) {
	a := Eq(Prop("type"), String("update"))
	b := Eq(Prop("type"), String("create"))

	t.Run("no operands yields Empty", func(t *testing.T) {
		if !IsEmpty(OrOf()) {
			t.Error("OrOf() should be Empty")
		}
	})

	t.Run("all empty operands yields Empty", func(t *testing.T) {
		if !IsEmpty(OrOf(Empty{}, Empty{})) {
			t.Error("OrOf(Empty, Empty) should be Empty")
		}
	})

	t.Run("left fold", func(t *testing.T) {
		got := OrOf(a, Empty{}, b)
		want := Or{Left: a, Right: b}
		if !reflect.DeepEqual(got, Node(want)) {
			t.Errorf("OrOf() = %#v, want %#v", got, want)
		}
	})
}

func TestDateNormalizesToUTC(t *testing.T) {
	zone := time.FixedZone("CET", 3600)
	local := time.Date(2026, 3, 1, 13, 0, 0, 0, zone)

	v := Date(local)
	if v.Date.Location() != time.UTC {
		t.Errorf("Date location = %v, want UTC", v.Date.Location())
	}
	if !v.Date.Equal(local) {
		t.Error("normalization must not change the instant")
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) {
		t.Error("IsEmpty(nil) = false, want true")
	}
	if !IsEmpty(Empty{}) {
		t.Error("IsEmpty(Empty{}) = false, want true")
	}
	if IsEmpty(Prop("type")) {
		t.Error("IsEmpty(Property) = true, want false")
	}
}

func TestNotBuilders(t *testing.T) {
	not := NotInValues(Prop("id"), String("e1"), String("e2"))
	in, ok := not.Child.(In)
	if !ok {
		t.Fatalf("NotInValues child = %T, want In", not.Child)
	}
	if len(in.Values) != 2 {
		t.Errorf("len(Values) = %d, want 2", len(in.Values))
	}

	sub := NotInSubquery(Prop("id"), "SELECT 1", map[string]any{"u": "alice"})
	inner, ok := sub.Child.(InSubquery)
	if !ok {
		t.Fatalf("NotInSubquery child = %T, want InSubquery", sub.Child)
	}
	if inner.Statement != "SELECT 1" {
		t.Errorf("Statement = %q, want verbatim statement", inner.Statement)
	}
}

func TestImplicitEq(t *testing.T) {
	cmp := ImplicitEq(Prop("hidden"), Bool(false))
	if !cmp.Implicit {
		t.Error("ImplicitEq must set the Implicit flag")
	}
	if cmp.Kind != CompareEquals {
		t.Errorf("Kind = %v, want CompareEquals", cmp.Kind)
	}

	if Eq(Prop("hidden"), Bool(false)).Implicit {
		t.Error("Eq must not set the Implicit flag")
	}
}

func TestSortBy(t *testing.T) {
	inner := Eq(Prop("type"), String("update"))
	ob := SortBy(inner, "date", SortDesc)
	if ob.Property.Name != "date" || ob.Direction != SortDesc {
		t.Errorf("SortBy() = %#v, want date descending", ob)
	}
	if !reflect.DeepEqual(ob.Child, Node(inner)) {
		t.Error("SortBy must wrap the child unchanged")
	}
}
