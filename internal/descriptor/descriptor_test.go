package descriptor

import "testing"

func TestParse_FullDescriptor(t *testing.T) {
	topic := "<remote-vibe><directory>/home/user/project</directory><app>myapp</app></remote-vibe>"
	d := Parse(topic)
	if d.Directory != "/home/user/project" || d.AppID != "myapp" {
		t.Fatalf("Parse() = %+v", d)
	}
}

func TestParse_ToleratesSurroundingText(t *testing.T) {
	topic := "project channel — <remote-vibe><directory>/tmp/x</directory><app>a1</app></remote-vibe> (active)"
	d := Parse(topic)
	if d.Directory != "/tmp/x" || d.AppID != "a1" {
		t.Fatalf("Parse() = %+v", d)
	}
}

func TestParse_MissingAppTag(t *testing.T) {
	topic := "<remote-vibe><directory>/tmp/x</directory></remote-vibe>"
	d := Parse(topic)
	if d.Directory != "/tmp/x" || d.AppID != "" {
		t.Fatalf("Parse() = %+v", d)
	}
}

func TestParse_NoDescriptorYieldsZeroValue(t *testing.T) {
	d := Parse("just a plain topic with no tags")
	if d.Directory != "" || d.AppID != "" {
		t.Fatalf("Parse() = %+v, want zero value", d)
	}
}

func TestParse_MalformedNeverPanics(t *testing.T) {
	inputs := []string{
		"<remote-vibe><directory>unterminated",
		"<directory>/tmp</directory><remote-vibe>",
		"",
		"<<<>>>",
	}
	for _, in := range inputs {
		_ = Parse(in)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	d := Descriptor{Directory: "/home/a", AppID: "b"}
	topic := Render(d)
	got := Parse(topic)
	if got != d {
		t.Fatalf("round trip = %+v, want %+v", got, d)
	}
}
