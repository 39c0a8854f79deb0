package sanitizer

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSanitizeRemovesScripts(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		in   string
	}{
		{"plain script", `<p>hi</p><script>alert(1)</script>`},
		{"script with attrs", `<script type="text/javascript" src="x.js">x()</script><p>hi</p>`},
		{"noscript", `<noscript><img src="http://evil/track.gif"></noscript><p>hi</p>`},
		{"mixed case", `<SCRIPT>alert(1)</SCRIPT><p>hi</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Sanitize(tt.in)
			if strings.Contains(strings.ToLower(out), "script") || strings.Contains(out, "alert(1)") {
				t.Errorf("Sanitize(%q) = %q, script survived", tt.in, out)
			}
			if !strings.Contains(out, "hi") {
				t.Errorf("Sanitize(%q) = %q, safe content lost", tt.in, out)
			}
		})
	}
}

func TestSanitizeRemovesEventHandlers(t *testing.T) {
	s := New()

	in := `<img src="data:image/png;base64,aGk=" onerror="alert(1)" onload='x()' alt="pic">`
	out := s.Sanitize(in)

	if strings.Contains(strings.ToLower(out), "onerror") || strings.Contains(strings.ToLower(out), "onload") {
		t.Errorf("event handlers survived: %q", out)
	}
	if !strings.Contains(out, "alt=\"pic\"") {
		t.Errorf("allowed attribute lost: %q", out)
	}
}

func TestSanitizeKeepsEmailMarkup(t *testing.T) {
	s := New()

	in := `<table border="1"><tr><td colspan="2">cell</td></tr></table>` +
		`<blockquote>quoted reply</blockquote>` +
		`<a href="https://example.com">link</a>`
	out := s.Sanitize(in)

	for _, want := range []string{"colspan=\"2\"", "<blockquote>", "quoted reply", "link"} {
		if !strings.Contains(out, want) {
			t.Errorf("sanitized output lost %q: %q", want, out)
		}
	}
}

func TestSanitizeEmptyInput(t *testing.T) {
	if got := New().Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q", got)
	}
}

func TestRemoveScripts(t *testing.T) {
	in := `a<script>1</script>b<noscript>2</noscript>c`
	if got := RemoveScripts(in); got != "abc" {
		t.Errorf("RemoveScripts = %q, want abc", got)
	}
}

func TestRemoveEventHandlers(t *testing.T) {
	in := `<div onclick="go()" onmouseover=track class="ok">x</div>`
	got := RemoveEventHandlers(in)
	if strings.Contains(got, "onclick") || strings.Contains(got, "onmouseover") {
		t.Errorf("RemoveEventHandlers = %q", got)
	}
	if !strings.Contains(got, `class="ok"`) {
		t.Errorf("non-event attribute lost: %q", got)
	}
}

func TestSanitizeNeverEmitsScriptTags(t *testing.T) {
	s := New()

	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[ -~]{0,30}`).Draw(t, "prefix")
		payload := rapid.StringMatching(`[a-z(){};.]{0,20}`).Draw(t, "payload")
		suffix := rapid.StringMatching(`[ -~]{0,30}`).Draw(t, "suffix")

		in := prefix + "<script>" + payload + "</script>" + suffix
		out := strings.ToLower(s.Sanitize(in))

		if strings.Contains(out, "<script") {
			t.Fatalf("script tag survived sanitization: %q", out)
		}
	})
}
