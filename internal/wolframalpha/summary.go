// ABOUTME: Structured summary of a full query and its Markdown rendering
// ABOUTME: Pods contributing neither text nor images are dropped

package wolframalpha

import (
	"fmt"
	"strconv"
	"strings"
)

// Summary is the reduced form of a full query result.
type Summary struct {
	Input       string       `json:"input"`
	Timing      float64      `json:"timing,omitempty"`
	Pods        []PodSummary `json:"pods"`
	Assumptions []Assumption `json:"assumptions,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// PodSummary is one pod's text and images.
type PodSummary struct {
	Title  string  `json:"title"`
	Text   string  `json:"text,omitempty"`
	Images []Image `json:"images,omitempty"`
}

func summarize(input string, resp *Response) *Summary {
	s := &Summary{
		Input:       input,
		Timing:      resp.Timing,
		Assumptions: resp.Assumptions,
		Warnings:    resp.Warnings,
	}

	for _, pod := range resp.Pods {
		var texts []string
		var images []Image
		for _, sub := range pod.Subpods {
			if text := strings.TrimSpace(sub.Plaintext); text != "" {
				texts = append(texts, text)
			}
			if sub.Img != nil && sub.Img.Src != "" {
				images = append(images, *sub.Img)
			}
		}
		if len(texts) == 0 && len(images) == 0 {
			continue
		}
		s.Pods = append(s.Pods, PodSummary{
			Title:  pod.Title,
			Text:   strings.Join(texts, "\n"),
			Images: images,
		})
	}

	return s
}

// Markdown renders the summary for display. Images are emitted as Markdown
// image links when includeImages is set.
func (s *Summary) Markdown(includeImages bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Input:** %s\n", s.Input)

	if len(s.Pods) == 0 {
		b.WriteString("\n")
		b.WriteString(NoResults)
		b.WriteString("\n")
	}

	for _, pod := range s.Pods {
		fmt.Fprintf(&b, "\n### %s\n", pod.Title)
		if pod.Text != "" {
			b.WriteString(pod.Text)
			b.WriteString("\n")
		}
		if includeImages {
			for _, img := range pod.Images {
				alt := img.Alt
				if alt == "" {
					alt = pod.Title
				}
				fmt.Fprintf(&b, "![%s](%s)\n", alt, img.Src)
			}
		}
	}

	if len(s.Assumptions) > 0 {
		b.WriteString("\n**Assumptions:**\n")
		for _, a := range s.Assumptions {
			b.WriteString("- ")
			b.WriteString(a.Type)
			if a.Word != "" {
				fmt.Fprintf(&b, " %q", a.Word)
			}
			var values []string
			for _, v := range a.Values {
				if v.Description != "" {
					values = append(values, fmt.Sprintf("%s (%s)", v.Name, v.Description))
				} else {
					values = append(values, v.Name)
				}
			}
			if len(values) > 0 {
				b.WriteString(": ")
				b.WriteString(strings.Join(values, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\n**Warnings:**\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if s.Timing > 0 {
		fmt.Fprintf(&b, "\n*Query time: %ss*\n", strconv.FormatFloat(s.Timing, 'f', -1, 64))
	}

	return strings.TrimRight(b.String(), "\n")
}
