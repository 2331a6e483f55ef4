package core

import "testing"

func TestPatternParams(t *testing.T) {
	p := compilePattern("/menu/group/<id:int>/filterby/<filter:int>")
	got, ok, err := p.match([]string{"menu", "group", "12", "filterby", "3"})
	if !ok || err != nil {
		t.Fatalf("match: %v %v", ok, err)
	}
	if got.Int("id") != 12 || got.Int("filter") != 3 {
		t.Fatalf("unexpected params: %+v", got)
	}

	if _, ok, err := p.match([]string{"menu", "group", "+12", "filterby", "3"}); !ok || !IsKind(err, KindParam) {
		t.Fatalf("signed integers are rejected: %v %v", ok, err)
	}
	if _, ok, _ := p.match([]string{"menu", "series", "12", "filterby", "3"}); ok {
		t.Fatalf("literal mismatch must not match")
	}
}

func TestPatternPathCapture(t *testing.T) {
	p := compilePattern("/script/<url:path>")
	got, ok, err := p.match([]string{"script", "RunScript(a", "b)"})
	if !ok || err != nil {
		t.Fatalf("match: %v %v", ok, err)
	}
	if got.String("url") != "RunScript(a/b)" {
		t.Fatalf("unexpected capture %q", got.String("url"))
	}
	if _, ok, _ := p.match([]string{"script"}); ok {
		t.Fatalf("path capture needs at least one segment")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]int{
		"":                                0,
		"/":                               0,
		"/menu/filter/3/":                 3,
		"plugin://addon.id/menu/search/a": 3,
		"/menu/search/a%2Fb?x=1":          3,
	}
	for in, want := range tests {
		parts, err := normalizePath(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if len(parts) != want {
			t.Fatalf("%q: got %v", in, parts)
		}
	}
}
