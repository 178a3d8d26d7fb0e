package tui

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"div": true, "p": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "tr": true, "section": true,
}

// plainText flattens an HTML fragment into trimmed, non-empty lines. Links keep
// their target in angle brackets after the anchor text.
func plainText(fragment string) []string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var (
		b     strings.Builder
		lines []string
		href  []string
	)
	flush := func() {
		line := strings.Join(strings.Fields(b.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		b.Reset()
	}
	for {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return lines
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if blockTags[tag] {
				flush()
			}
			if tag == "a" {
				target := ""
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "href" {
						target = string(v)
					}
				}
				href = append(href, target)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "a" && len(href) > 0 {
				if target := href[len(href)-1]; target != "" {
					b.WriteString("<" + target + "> ")
				}
				href = href[:len(href)-1]
			}
			if blockTags[tag] {
				flush()
			}
		}
	}
}

// soundExample is one sound-example figure of a detail fragment.
type soundExample struct {
	sound       string
	spectrogram string
	waveform    string
	duration    time.Duration
	gain        float64
}

// soundExamples lists the sound-example figures of fragment in document order.
// Figures without a sound URL are skipped; a missing or bad gain reads as 1.
func soundExamples(fragment string) []soundExample {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out []soundExample
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "figure" {
				continue
			}
			attrs := make(map[string]string)
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[string(k)] = string(v)
			}
			if !slices.Contains(strings.Fields(attrs["class"]), "sound-example") || attrs["data-sound-url"] == "" {
				continue
			}
			ex := soundExample{
				sound:       attrs["data-sound-url"],
				spectrogram: attrs["data-spectrogram-url"],
				waveform:    attrs["data-waveform-url"],
				gain:        1,
			}
			if s, err := strconv.ParseFloat(attrs["data-duration"], 64); err == nil && s > 0 {
				ex.duration = time.Duration(s * float64(time.Second))
			}
			if g, err := strconv.ParseFloat(attrs["data-gain"], 64); err == nil && g > 0 {
				ex.gain = g
			}
			out = append(out, ex)
		}
	}
}
