package vdom

import "testing"

func TestAttrValueEqual(t *testing.T) {
	noop := func(*Event) error { return nil }
	tests := []struct {
		name string
		a, b AttrValue
		want bool
	}{
		{"same text", TextAttr("a", "x").Value, TextAttr("a", "x").Value, true},
		{"different text", TextAttr("a", "x").Value, TextAttr("a", "y").Value, false},
		{"int", IntAttr("a", 1).Value, IntAttr("a", 1).Value, true},
		{"float", FloatAttr("a", 1.5).Value, FloatAttr("a", 2.5).Value, false},
		{"bool", BoolAttr("a", true).Value, BoolAttr("a", true).Value, true},
		{"kind mismatch", TextAttr("a", "1").Value, IntAttr("a", 1).Value, false},
		{"listeners", ListenerAttr("click", noop).Value, ListenerAttr("click", nil).Value, true},
		{"none", AttrValue{}, AttrValue{}, true},
		{"any", AnyAttr("a", []int{1}).Value, AnyAttr("a", []int{1}).Value, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttrValueString(t *testing.T) {
	tests := []struct {
		v    AttrValue
		want string
	}{
		{TextAttr("a", "x").Value, "x"},
		{IntAttr("a", -4).Value, "-4"},
		{FloatAttr("a", 0.25).Value, "0.25"},
		{BoolAttr("a", true).Value, "true"},
		{AttrValue{}, ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestAttributeHelpers(t *testing.T) {
	if got := Class("a", "", "b").Value.Text; got != "a b" {
		t.Errorf("Class = %q, want %q", got, "a b")
	}
	if got := ClassIf(false, "x").Value.Kind; got != AttrNone {
		t.Errorf("ClassIf(false) kind = %v, want None", got)
	}
	if !Value("v").Volatile || !Checked(true).Volatile {
		t.Error("Value and Checked should be volatile")
	}
	if got := Data("id", "7").Name; got != "data-id" {
		t.Errorf("Data name = %q", got)
	}
	click := OnClick(func(*Event) {})
	if !click.IsListener() || click.EventName() != "click" || click.Name != "onclick" {
		t.Errorf("OnClick = %+v", click)
	}
	if ns := TextAttr("href", "#").NS("xlink").Namespace; ns != "xlink" {
		t.Errorf("NS = %q", ns)
	}
}

func TestEventFlags(t *testing.T) {
	e := NewEvent("click", 3, map[string]any{"x": 1})
	if !e.Bubbles || !e.Propagates() {
		t.Error("click should bubble")
	}
	e.StopPropagation()
	if e.Propagates() {
		t.Error("Propagates() after StopPropagation = true")
	}
	if e.DefaultPrevented() {
		t.Error("DefaultPrevented() = true before PreventDefault")
	}
	e.PreventDefault()
	if !e.DefaultPrevented() {
		t.Error("DefaultPrevented() = false after PreventDefault")
	}

	focus := NewEvent("focus", 3, nil)
	if focus.Bubbles || focus.Propagates() {
		t.Error("focus should not bubble")
	}
}
