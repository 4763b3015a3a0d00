package parser

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"fundwatch/internal/fund"
)

const (
	navDateHeader = "净值日期"
	navUnitHeader = "单位净值"
	navDateLayout = "2006-01-02"
)

// ParseNavHistory extracts (date, unit NAV) rows from the first HTML table
// in the payload. The source lists rows newest-first; the returned series
// is reversed to oldest-first. Rows whose date or NAV cell fails coercion
// are dropped. Any structural failure yields an empty series, never an
// error: NAV history is soft-optional for callers.
func ParseNavHistory(payload []byte) fund.NavSeries {
	doc, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil
	}

	table := findFirstElement(doc, "table")
	if table == nil {
		return nil
	}

	rows := collectElements(table, "tr")
	if len(rows) < 2 {
		return nil
	}

	header := cellTexts(rows[0])
	dateIdx, unitIdx := -1, -1
	for i, h := range header {
		switch h {
		case navDateHeader:
			dateIdx = i
		case navUnitHeader:
			unitIdx = i
		}
	}
	if dateIdx < 0 || unitIdx < 0 {
		return nil
	}

	series := make(fund.NavSeries, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := cellTexts(row)
		if dateIdx >= len(cells) || unitIdx >= len(cells) {
			continue
		}
		date, err := time.Parse(navDateLayout, cells[dateIdx])
		if err != nil {
			continue
		}
		nav, err := strconv.ParseFloat(cells[unitIdx], 64)
		if err != nil {
			continue
		}
		series = append(series, fund.NavPoint{Date: date, UnitNAV: nav})
	}

	// newest-first upstream, oldest-first out
	for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
		series[i], series[j] = series[j], series[i]
	}
	return series
}

func findFirstElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func cellTexts(row *html.Node) []string {
	var out []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, strings.TrimSpace(nodeText(c)))
		}
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
