package content

import (
	"strings"
	"testing"
)

func render(t *testing.T, doc string, width int) string {
	t.Helper()
	out, err := HTMLToText(strings.NewReader(doc), width)
	if err != nil {
		t.Fatalf("HTMLToText failed: %v", err)
	}
	return out
}

func TestHTMLToTextStructure(t *testing.T) {
	doc := `<!DOCTYPE html>
	<html>
	<head><title>Ignored title</title><style>body { color: red; }</style></head>
	<body>
		<h1>Main   Title</h1>
		<p>First paragraph with <a href="/x">a link</a> and <em>emphasis</em>.</p>
		<script>alert("hidden")</script>
		<h2>Section</h2>
		<ul>
			<li>one</li>
			<li>two</li>
		</ul>
		<ol start="3">
			<li>three</li>
			<li>four</li>
		</ol>
		<blockquote><p>Quoted words</p></blockquote>
		<pre>line 1
  line 2</pre>
	</body>
	</html>`

	want := strings.Join([]string{
		"# Main Title",
		"First paragraph with a link and emphasis.",
		"## Section",
		"* one\n* two",
		"3. three\n4. four",
		"> Quoted words",
		"line 1\n  line 2",
	}, "\n\n")

	if got := render(t, doc, DefaultWidth); got != want {
		t.Errorf("unexpected rendering:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestHTMLToTextWrapsAtWidth(t *testing.T) {
	sentence := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	out := render(t, "<p>"+sentence+"</p><ul><li>"+sentence+"</li></ul>", 80)

	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("expected wrapped output, got %q", out)
	}
	for _, line := range lines {
		if len(line) > 80 {
			t.Errorf("line exceeds 80 columns (%d): %q", len(line), line)
		}
	}

	// continuation lines of a list item are aligned under its text
	var sawBullet bool
	for _, line := range lines {
		if strings.HasPrefix(line, "* ") {
			sawBullet = true
			continue
		}
		if sawBullet && line != "" && !strings.HasPrefix(line, "  ") {
			t.Errorf("expected indented continuation, got %q", line)
		}
	}
}

func TestHTMLToTextNestedList(t *testing.T) {
	doc := `<ul><li>parent<ul><li>child</li></ul></li><li>sibling</li></ul>`
	want := "* parent\n  * child\n* sibling"

	if got := render(t, doc, DefaultWidth); got != want {
		t.Errorf("unexpected rendering:\n%q\nwant\n%q", got, want)
	}
}

func TestHTMLToTextLineBreaksAndImages(t *testing.T) {
	doc := `<p>first line<br>second line</p><p><img src="x.png" alt="diagram"> caption</p>`
	want := "first line\nsecond line\n\n[diagram] caption"

	if got := render(t, doc, DefaultWidth); got != want {
		t.Errorf("unexpected rendering:\n%q\nwant\n%q", got, want)
	}
}

func TestHTMLToTextEmptyAndFragment(t *testing.T) {
	if got := render(t, "", DefaultWidth); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if got := render(t, "plain <b>text</b> only", 0); got != "plain text only" {
		t.Errorf("unexpected fragment rendering %q", got)
	}
}
